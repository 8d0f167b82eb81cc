package keystore

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mailproof/internal/common"
	"github.com/dmitrijs2005/mailproof/internal/server/proof"
	"golang.org/x/crypto/blake2b"
)

const keyExt = ".pem"

// NormalizeIdentity trims surrounding whitespace and checks that identity
// looks like an address. The identity must be a single line and must not
// contain the proof token separator. The result is used verbatim as the key identity.
func NormalizeIdentity(identity string) (string, error) {
	id := strings.TrimSpace(identity)
	switch {
	case id == "":
		return "", fmt.Errorf("%w: empty", common.ErrorInvalidIdentity)
	case !strings.Contains(id, "@"):
		return "", fmt.Errorf("%w: %q has no @", common.ErrorInvalidIdentity, id)
	case strings.ContainsAny(id, "\r\n"):
		return "", fmt.Errorf("%w: %q spans lines", common.ErrorInvalidIdentity, id)
	case strings.Contains(id, proof.Separator):
		return "", fmt.Errorf("%w: %q contains %q", common.ErrorInvalidIdentity, id, proof.Separator)
	}
	return id, nil
}

// Name derives the storage name of an identity's key: the hex BLAKE2b-256
// digest of the identity plus ".pem". Distinct identities never share a name.
func Name(identity string) string {
	sum := blake2b.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:]) + keyExt
}
