package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/mailproof/internal/common"
	"github.com/dmitrijs2005/mailproof/internal/logging"
	"github.com/dmitrijs2005/mailproof/internal/server/auth"
	"github.com/dmitrijs2005/mailproof/internal/server/config"
	"github.com/dmitrijs2005/mailproof/internal/server/keystore"
	"github.com/dmitrijs2005/mailproof/internal/server/proof"
	"github.com/dmitrijs2005/mailproof/internal/server/repositories/keys"
	"github.com/dmitrijs2005/mailproof/internal/server/services"
	"github.com/dmitrijs2005/mailproof/internal/server/verification"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const testSecret = "secret"

type discardTransport struct{}

func (discardTransport) Send(context.Context, string, string, []string, []byte) error { return nil }

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Nop{}, nil, nil, nil, "secret")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop{}, nil, nil, nil, "secret")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}

// startBufServer runs a fully wired server over an in-memory listener.
func startBufServer(t *testing.T) (*ProofServiceClient, *grpc.ClientConn, *keystore.KeyStore) {
	t.Helper()

	repo, err := keys.NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRepository: %v", err)
	}
	ks := keystore.New(repo)
	cfg := &config.Config{}
	cfg.LoadDefaults()

	sender := services.NewSendService(ks, proof.NewBuilder(), discardTransport{}, cfg, logging.Nop{})
	srv := NewGRPCServer("", logging.Nop{}, verification.NewService(ks, logging.Nop{}), ks, sender, testSecret)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})

	return NewProofServiceClient(conn), conn, ks
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	return s
}

func withToken(t *testing.T, identity string) context.Context {
	t.Helper()
	token, err := auth.GenerateToken(identity, []byte(testSecret), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, token)
}

func TestProofService_EndToEnd(t *testing.T) {
	client, _, _ := startBufServer(t)
	ctx := withToken(t, "alice@example.com")

	issued, err := client.IssueProof(ctx, mustStruct(t, map[string]any{"annotation": "hello"}))
	if err != nil {
		t.Fatalf("IssueProof: %v", err)
	}
	msg := field(issued, "message")
	sig := field(issued, "signature")
	pub := field(issued, "public_key")
	if field(issued, "identity") != "alice@example.com" {
		t.Fatalf("identity = %q", field(issued, "identity"))
	}

	res, err := client.Verify(context.Background(), mustStruct(t, map[string]any{
		"identity": "alice@example.com", "message": msg, "hex_signature": sig,
	}))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.GetFields()["verified"].GetBoolValue() || field(res, "status") != "verified" {
		t.Fatalf("expected verified, got %v", res.AsMap())
	}

	res, err = client.VerifyWithKey(context.Background(), mustStruct(t, map[string]any{
		"public_key": pub, "key_encoding": "pem", "message": msg + "x", "hex_signature": sig,
	}))
	if err != nil {
		t.Fatalf("VerifyWithKey: %v", err)
	}
	if field(res, "status") != "not-verified" || field(res, "reason") != "signature_mismatch" {
		t.Fatalf("expected mismatch, got %v", res.AsMap())
	}

	key, err := client.GetPublicKey(context.Background(), mustStruct(t, map[string]any{"identity": "alice@example.com"}))
	if err != nil {
		t.Fatalf("GetPublicKey: %v", err)
	}
	if field(key, "public_key") != pub {
		t.Fatal("public key differs from the issued one")
	}
}

func TestProofService_Errors(t *testing.T) {
	client, _, ks := startBufServer(t)

	_, err := client.GetPublicKey(context.Background(), mustStruct(t, map[string]any{"identity": "bob@example.com"}))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if ok, _ := ks.Exists(context.Background(), "bob@example.com"); ok {
		t.Fatal("GetPublicKey must not create keys")
	}

	_, err = client.GetPublicKey(context.Background(), mustStruct(t, map[string]any{"identity": "nobody"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	_, err = client.IssueProof(context.Background(), mustStruct(t, map[string]any{}))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	_, err = client.IssueProof(withToken(t, "alice@example.com"), mustStruct(t, map[string]any{"identity": "mallory@example.com"}))
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}

	res, err := client.Verify(context.Background(), mustStruct(t, map[string]any{
		"identity": "alice@example.com", "message": "m", "hex_signature": "not-hex",
	}))
	if err != nil {
		t.Fatalf("Verify must not fail: %v", err)
	}
	if field(res, "status") != "error" || field(res, "reason") != "malformed_input" {
		t.Fatalf("expected malformed input, got %v", res.AsMap())
	}
}

func TestHealthService(t *testing.T) {
	_, conn, _ := startBufServer(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v", resp.GetStatus())
	}
}
