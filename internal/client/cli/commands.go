package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/mailproof/internal/common"
	"github.com/dmitrijs2005/mailproof/internal/cryptox"
	"github.com/dmitrijs2005/mailproof/internal/logging"
	"github.com/dmitrijs2005/mailproof/internal/netx"
	"github.com/dmitrijs2005/mailproof/internal/server/auth"
	"github.com/dmitrijs2005/mailproof/internal/server/keystore"
	"github.com/dmitrijs2005/mailproof/internal/server/proof"
	"github.com/dmitrijs2005/mailproof/internal/server/signing"
	"github.com/dmitrijs2005/mailproof/internal/server/verification"
)

func (a *App) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func (a *App) keygen(ctx context.Context, args []string) (int, error) {
	fs := a.flagSet("keygen")
	identity := fs.String("identity", "", "identity (email address)")
	if err := fs.Parse(args); err != nil {
		return ExitError, err
	}
	if err := a.requireFlag(fs, "identity", *identity); err != nil {
		return ExitError, err
	}

	ks, err := a.keyStore()
	if err != nil {
		return ExitError, err
	}
	existed, err := ks.Exists(ctx, *identity)
	if err != nil {
		return ExitError, err
	}
	kp, err := ks.Resolve(ctx, *identity)
	if err != nil {
		return ExitError, err
	}
	pub, err := signing.NewEngine(kp).ExportPublicKey()
	if err != nil {
		return ExitError, err
	}

	if existed {
		fmt.Fprintf(a.errOut, "key for %s already exists, not regenerated\n", kp.Identity)
	}
	fmt.Fprintf(a.errOut, "stored as %s\n", keystore.Name(kp.Identity))
	fmt.Fprint(a.out, pub)
	return ExitOK, nil
}

func (a *App) pubkey(ctx context.Context, args []string) (int, error) {
	fs := a.flagSet("pubkey")
	identity := fs.String("identity", "", "identity (email address)")
	b64 := fs.Bool("base64", false, "print the base64-wrapped form")
	if err := fs.Parse(args); err != nil {
		return ExitError, err
	}
	if err := a.requireFlag(fs, "identity", *identity); err != nil {
		return ExitError, err
	}

	ks, err := a.keyStore()
	if err != nil {
		return ExitError, err
	}
	pub, err := ks.PublicKeyPEM(ctx, *identity)
	if err != nil {
		return ExitError, err
	}

	if *b64 {
		fmt.Fprintln(a.out, cryptox.EncodePublicKeyBase64(pub))
	} else {
		fmt.Fprint(a.out, pub)
	}
	return ExitOK, nil
}

type signOutput struct {
	Identity  string `json:"identity"`
	ProofID   string `json:"proof_id,omitempty"`
	Message   string `json:"message"`
	Display   string `json:"display,omitempty"`
	Signature string `json:"signature"`
}

func (a *App) sign(ctx context.Context, args []string) (int, error) {
	fs := a.flagSet("sign")
	identity := fs.String("identity", "", "identity (email address)")
	annotation := fs.String("annotation", "", "free text signed into the token")
	raw := fs.String("message", "", "sign this exact message instead of a fresh proof token")
	if err := fs.Parse(args); err != nil {
		return ExitError, err
	}
	if err := a.requireFlag(fs, "identity", *identity); err != nil {
		return ExitError, err
	}

	ks, err := a.keyStore()
	if err != nil {
		return ExitError, err
	}
	kp, err := ks.Resolve(ctx, *identity)
	if err != nil {
		return ExitError, err
	}
	engine := signing.NewEngine(kp)

	out := signOutput{Identity: engine.Identity(), Message: *raw}
	if *raw == "" {
		token, err := proof.NewBuilder().Build(kp.Identity, *annotation)
		if err != nil {
			return ExitError, err
		}
		out.ProofID, out.Message, out.Display = token.ID, token.Message, token.Display()
	}

	out.Signature, err = engine.CreateProofSignature(out.Message)
	if err != nil {
		return ExitError, err
	}
	return ExitOK, a.printJSON(out)
}

// lookupEngine loads an existing key; it never creates one.
func (a *App) lookupEngine(ctx context.Context, identity string) (*signing.Engine, error) {
	ks, err := a.keyStore()
	if err != nil {
		return nil, err
	}
	kp, err := ks.Lookup(ctx, identity)
	if err != nil {
		return nil, err
	}
	return signing.NewEngine(kp), nil
}

func (a *App) encrypt(ctx context.Context, args []string) (int, error) {
	fs := a.flagSet("encrypt")
	identity := fs.String("identity", "", "identity whose public key is used")
	message := fs.String("message", "", "plaintext")
	if err := fs.Parse(args); err != nil {
		return ExitError, err
	}
	if err := a.requireFlag(fs, "identity", *identity); err != nil {
		return ExitError, err
	}

	engine, err := a.lookupEngine(ctx, *identity)
	if err != nil {
		return ExitError, err
	}
	ct, err := engine.Encrypt(*message)
	if err != nil {
		return ExitError, err
	}
	fmt.Fprintln(a.out, ct)
	return ExitOK, nil
}

func (a *App) decrypt(ctx context.Context, args []string) (int, error) {
	fs := a.flagSet("decrypt")
	identity := fs.String("identity", "", "identity whose private key is used")
	ciphertext := fs.String("ciphertext", "", "hex ciphertext from encrypt")
	if err := fs.Parse(args); err != nil {
		return ExitError, err
	}
	if err := a.requireFlag(fs, "identity", *identity); err != nil {
		return ExitError, err
	}
	if err := a.requireFlag(fs, "ciphertext", *ciphertext); err != nil {
		return ExitError, err
	}

	engine, err := a.lookupEngine(ctx, *identity)
	if err != nil {
		return ExitError, err
	}
	pt, err := engine.Decrypt(strings.TrimSpace(*ciphertext))
	if err != nil {
		return ExitError, err
	}
	fmt.Fprintln(a.out, pt)
	return ExitOK, nil
}

type verifyOutput struct {
	Status   string `json:"status"`
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
	Error    string `json:"error,omitempty"`

	// Set when a verified message is a proof token.
	ProofID  string `json:"proof_id,omitempty"`
	IssuedAt string `json:"issued_at,omitempty"`
	SignedBy string `json:"signed_by,omitempty"`
}

func (a *App) verify(ctx context.Context, args []string) (int, error) {
	fs := a.flagSet("verify")
	identity := fs.String("identity", "", "identity whose stored key is used")
	pubFile := fs.String("pubkey", "", "file holding the public key to verify against")
	encoding := fs.String("encoding", "pem", "wrapping of -pubkey: pem or base64")
	message := fs.String("message", "", "signed message")
	signature := fs.String("signature", "", "hex signature")
	remote := fs.Bool("remote", false, "verify on the server at the configured URL")
	if err := fs.Parse(args); err != nil {
		return ExitError, err
	}
	if (*identity == "") == (*pubFile == "") {
		fmt.Fprintln(a.errOut, "verify: exactly one of -identity and -pubkey is required")
		fs.Usage()
		return ExitError, errUsage
	}

	var pubKey string
	if *pubFile != "" {
		b, err := os.ReadFile(*pubFile)
		if err != nil {
			return ExitError, err
		}
		pubKey = strings.TrimSpace(string(b))
	}

	var out verifyOutput
	if *remote {
		ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()

		var err error
		if *identity != "" {
			err = netx.DoJSON(ctx, a.client, http.MethodPost, a.url("/verify"), "", map[string]string{
				"identity": *identity, "message": *message, "hex_signature": *signature,
			}, &out)
		} else {
			err = netx.DoJSON(ctx, a.client, http.MethodPost, a.url("/verify/key"), "", map[string]string{
				"public_key": pubKey, "key_encoding": *encoding, "message": *message, "hex_signature": *signature,
			}, &out)
		}
		if err != nil {
			return ExitError, err
		}
	} else {
		ks, err := a.keyStore()
		if err != nil {
			return ExitError, err
		}
		svc := verification.NewService(ks, logging.Nop{})

		var r verification.Result
		if *identity != "" {
			r = svc.VerifyByIdentity(ctx, *identity, *message, *signature)
		} else {
			r = svc.VerifyByPublicKey(ctx, pubKey, *encoding, *message, *signature)
		}
		out = verifyOutput{Status: r.Status.String(), Verified: r.Verified(), Reason: string(r.Reason), Error: r.Detail}
	}

	if out.Verified {
		if tok, err := proof.Parse(*message); err == nil {
			out.ProofID = tok.ID
			out.IssuedAt = tok.IssuedAt.Format(time.RFC3339Nano)
			out.SignedBy = tok.Identity
		}
	}

	if err := a.printJSON(out); err != nil {
		return ExitError, err
	}
	switch {
	case out.Verified:
		return ExitOK, nil
	case out.Status == verification.Invalid.String():
		return ExitNegative, nil
	default:
		return ExitError, nil
	}
}

func (a *App) token(_ context.Context, args []string) (int, error) {
	fs := a.flagSet("token")
	identity := fs.String("identity", "", "identity the token binds to")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return ExitError, err
	}
	if err := a.requireFlag(fs, "identity", *identity); err != nil {
		return ExitError, err
	}
	if _, err := keystore.NormalizeIdentity(*identity); err != nil {
		return ExitError, err
	}

	tok, err := auth.GenerateToken(strings.TrimSpace(*identity), []byte(a.config.SecretKey), *ttl)
	if err != nil {
		return ExitError, err
	}
	fmt.Fprintln(a.out, tok)
	return ExitOK, nil
}

type sendOutput struct {
	Sent    bool   `json:"sent"`
	ProofID string `json:"proof_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (a *App) send(ctx context.Context, args []string) (int, error) {
	fs := a.flagSet("send")
	to := fs.String("to", "", "comma separated recipients")
	cc := fs.String("cc", "", "comma separated Cc recipients")
	bcc := fs.String("bcc", "", "comma separated Bcc recipients")
	subject := fs.String("subject", "", "subject")
	body := fs.String("body", "", "HTML body; prompted for when empty")
	name := fs.String("name", "", "sender display name")
	role := fs.String("role", "", "sender role")
	replyTo := fs.String("reply-to", "", "Message-ID this mail replies to")
	token := fs.String("token", a.config.Token, "access token")
	if err := fs.Parse(args); err != nil {
		return ExitError, err
	}
	if err := a.requireFlag(fs, "token", *token); err != nil {
		return ExitError, err
	}

	var err error
	if *subject == "" {
		if *subject, err = GetSimpleText(a.reader, "Subject", a.errOut); err != nil {
			return ExitError, err
		}
	}
	if *body == "" {
		if *body, err = GetMultiline(a.reader, "Message body (HTML)", a.errOut); err != nil {
			return ExitError, err
		}
	}

	password, err := GetPassword(a.errOut, "SMTP password")
	if err != nil {
		return ExitError, err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	defer cancel()

	req := map[string]any{
		"password":     string(password),
		"name":         *name,
		"role":         *role,
		"subject":      *subject,
		"message_body": *body,
		"to":           splitList(*to),
		"cc":           splitList(*cc),
		"bcc":          splitList(*bcc),
		"reply_to":     *replyTo,
	}

	var out sendOutput
	err = netx.DoJSON(ctx, a.client, http.MethodPost, a.url("/send"), *token, req, &out,
		http.StatusOK, http.StatusBadRequest, http.StatusForbidden, http.StatusUnauthorized,
		http.StatusInternalServerError, http.StatusBadGateway)
	if err != nil {
		return ExitError, err
	}

	if err := a.printJSON(out); err != nil {
		return ExitError, err
	}
	if !out.Sent {
		return ExitNegative, nil
	}
	return ExitOK, nil
}

func (a *App) url(path string) string {
	return strings.TrimRight(a.config.ServerURL, "/") + path
}
