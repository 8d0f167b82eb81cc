package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/mailproof/internal/common"
	"github.com/dmitrijs2005/mailproof/internal/cryptox"
	"github.com/dmitrijs2005/mailproof/internal/server/services"
	"github.com/dmitrijs2005/mailproof/internal/server/verification"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Verifier evaluates signatures and never fails.
type Verifier interface {
	VerifyByIdentity(ctx context.Context, identity, message, hexSignature string) verification.Result
	VerifyByPublicKey(ctx context.Context, encodedKey, encoding, message, hexSignature string) verification.Result
}

// KeyLookup returns a stored public key without creating one.
type KeyLookup interface {
	PublicKeyPEM(ctx context.Context, identity string) (string, error)
}

// ProofIssuer signs fresh proof tokens.
type ProofIssuer interface {
	IssueProof(ctx context.Context, identity, annotation string) (*services.IssuedProof, error)
}

func field(in *structpb.Struct, key string) string {
	if in == nil {
		return ""
	}
	v, ok := in.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func result(r verification.Result) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"status":   r.Status.String(),
		"verified": r.Verified(),
		"reason":   string(r.Reason),
		"error":    r.Detail,
	})
}

func (s *GRPCServer) Verify(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := s.verifier.VerifyByIdentity(ctx, field(req, "identity"), field(req, "message"), field(req, "hex_signature"))
	return result(r)
}

func (s *GRPCServer) VerifyWithKey(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := s.verifier.VerifyByPublicKey(ctx,
		field(req, "public_key"),
		field(req, "key_encoding"),
		field(req, "message"),
		field(req, "hex_signature"),
	)
	return result(r)
}

func (s *GRPCServer) GetPublicKey(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	identity := field(req, "identity")
	pub, err := s.keys.PublicKeyPEM(ctx, identity)

	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return nil, status.Error(codes.NotFound, "no key for identity")
		case errors.Is(err, common.ErrorInvalidIdentity):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error(ctx, "public key lookup failed", "identity", identity, "error", err)
		return nil, status.Error(codes.Internal, "key could not be loaded")
	}

	return structpb.NewStruct(map[string]any{
		"status":            "ok",
		"public_key":        pub,
		"public_key_base64": cryptox.EncodePublicKeyBase64(pub),
	})
}

func (s *GRPCServer) IssueProof(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {

	identity, _ := ctx.Value(IdentityKey).(string)
	if identity == "" {
		return nil, status.Error(codes.Unauthenticated, "missing identity")
	}
	if requested := field(req, "identity"); requested != "" && requested != identity {
		return nil, status.Error(codes.PermissionDenied, "token does not match identity")
	}

	p, err := s.issuer.IssueProof(ctx, identity, field(req, "annotation"))
	if err != nil {
		if errors.Is(err, common.ErrorInvalidIdentity) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error(ctx, "issue proof failed", "identity", identity, "error", err)
		return nil, status.Error(codes.Internal, err.Error())
	}

	return structpb.NewStruct(map[string]any{
		"id":                p.ID,
		"issued_at":         p.IssuedAt.Format(time.RFC3339Nano),
		"identity":          p.Identity,
		"message":           p.Message,
		"display":           p.Display,
		"signature":         p.Signature,
		"public_key":        p.PublicKey,
		"public_key_base64": p.PublicKeyBase64,
	})
}
