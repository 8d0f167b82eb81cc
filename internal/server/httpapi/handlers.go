package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/mailproof/internal/common"
	"github.com/dmitrijs2005/mailproof/internal/cryptox"
	"github.com/dmitrijs2005/mailproof/internal/server/keystore"
	"github.com/dmitrijs2005/mailproof/internal/server/services"
	"github.com/dmitrijs2005/mailproof/internal/server/verification"
)

type errorResponse struct {
	Error string `json:"error"`
}

// verifyRequest also accepts the field names of the first API version
// (email, ps_message, ps_signature).
type verifyRequest struct {
	Identity     string `json:"identity"`
	Email        string `json:"email"`
	Message      string `json:"message"`
	PSMessage    string `json:"ps_message"`
	HexSignature string `json:"hex_signature"`
	PSSignature  string `json:"ps_signature"`
}

type verifyKeyRequest struct {
	PublicKey       string `json:"public_key"`
	KeyEncoding     string `json:"key_encoding"`
	Base64PublicKey string `json:"base64_public_key"`
	Message         string `json:"message"`
	HexSignature    string `json:"hex_signature"`
}

type verifyResponse struct {
	Status   string `json:"status"`
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
	Error    string `json:"error,omitempty"`
}

type keyResponse struct {
	Status          string `json:"status"`
	PublicKey       string `json:"public_key,omitempty"`
	PublicKeyBase64 string `json:"public_key_base64,omitempty"`
	Error           string `json:"error,omitempty"`
}

type sendRequest struct {
	Identity  string            `json:"identity"`
	Password  string            `json:"password"`
	Name      string            `json:"name"`
	Role      string            `json:"role"`
	LatinName string            `json:"latin_name"`
	LatinRole string            `json:"latin_role"`
	Extra     map[string]string `json:"extra"`
	Subject   string            `json:"subject"`
	Body      string            `json:"message_body"`
	To        []string          `json:"to"`
	CC        []string          `json:"cc"`
	BCC       []string          `json:"bcc"`
	ReplyTo   string            `json:"reply_to"`
}

type sendResponse struct {
	Sent    bool   `json:"sent"`
	ProofID string `json:"proof_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type proofRequest struct {
	Annotation string `json:"annotation"`
}

type proofResponse struct {
	ID              string    `json:"id"`
	IssuedAt        time.Time `json:"issued_at"`
	Identity        string    `json:"identity"`
	Message         string    `json:"message"`
	Display         string    `json:"display"`
	Signature       string    `json:"signature"`
	PublicKey       string    `json:"public_key"`
	PublicKeyBase64 string    `json:"public_key_base64"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resultResponse(r verification.Result) verifyResponse {
	return verifyResponse{
		Status:   r.Status.String(),
		Verified: r.Verified(),
		Reason:   string(r.Reason),
		Error:    r.Detail,
	}
}

func malformedBody(err error) verifyResponse {
	return verifyResponse{
		Status: verification.Error.String(),
		Reason: string(verification.ReasonMalformedInput),
		Error:  "malformed request body: " + err.Error(),
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVerify always answers 200; the outcome is in the body.
func (s *HTTPServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusOK, malformedBody(err))
		return
	}

	res := s.verifier.VerifyByIdentity(r.Context(),
		firstNonEmpty(req.Identity, req.Email),
		firstNonEmpty(req.Message, req.PSMessage),
		firstNonEmpty(req.HexSignature, req.PSSignature),
	)
	writeJSON(w, http.StatusOK, resultResponse(res))
}

func (s *HTTPServer) handleVerifyKey(w http.ResponseWriter, r *http.Request) {
	var req verifyKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusOK, malformedBody(err))
		return
	}

	key, encoding := req.PublicKey, req.KeyEncoding
	if key == "" && req.Base64PublicKey != "" {
		key, encoding = req.Base64PublicKey, string(cryptox.KeyEncodingBase64)
	}

	res := s.verifier.VerifyByPublicKey(r.Context(), key, encoding, req.Message, req.HexSignature)
	writeJSON(w, http.StatusOK, resultResponse(res))
}

// handleKey never creates a key.
func (s *HTTPServer) handleKey(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	identity := firstNonEmpty(q.Get("identity"), q.Get("email"))

	pub, err := s.keys.PublicKeyPEM(r.Context(), identity)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, keyResponse{
			Status:          "ok",
			PublicKey:       pub,
			PublicKeyBase64: cryptox.EncodePublicKeyBase64(pub),
		})
	case errors.Is(err, common.ErrorNotFound):
		writeJSON(w, http.StatusNotFound, keyResponse{Status: "notfound", Error: "no key for identity"})
	case errors.Is(err, common.ErrorInvalidIdentity):
		writeJSON(w, http.StatusBadRequest, keyResponse{Status: "error", Error: err.Error()})
	default:
		s.logger.Error(r.Context(), "public key lookup failed", "identity", identity, "error", err)
		writeJSON(w, http.StatusInternalServerError, keyResponse{Status: "error", Error: "key could not be loaded"})
	}
}

// sameIdentity compares a requested identity with the token's. An empty
// request means the token's identity.
func sameIdentity(requested, token string) bool {
	requested = strings.TrimSpace(requested)
	return requested == "" || requested == token
}

func (s *HTTPServer) handleSend(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req sendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, sendResponse{Error: "malformed request body: " + err.Error()})
		return
	}
	if !sameIdentity(req.Identity, identity) {
		writeJSON(w, http.StatusForbidden, sendResponse{Error: "token does not match sender identity"})
		return
	}

	res, err := s.sender.Send(r.Context(), services.SendRequest{
		Identity:  identity,
		Password:  req.Password,
		Name:      req.Name,
		Role:      req.Role,
		LatinName: req.LatinName,
		LatinRole: req.LatinRole,
		Extra:     req.Extra,
		Subject:   req.Subject,
		Body:      req.Body,
		To:        req.To,
		CC:        req.CC,
		BCC:       req.BCC,
		ReplyTo:   req.ReplyTo,
	})
	if err != nil {
		writeJSON(w, sendErrorStatus(err), sendResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, sendResponse{Sent: true, ProofID: res.ProofID})
}

func sendErrorStatus(err error) int {
	var loadErr *keystore.KeyLoadError
	var createErr *keystore.KeyCreationError

	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrorInvalidIdentity):
		return http.StatusBadRequest
	case errors.As(err, &loadErr), errors.As(err, &createErr):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func (s *HTTPServer) handleProof(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req proofRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body: " + err.Error()})
		return
	}

	p, err := s.sender.IssueProof(r.Context(), identity, req.Annotation)
	if err != nil {
		writeJSON(w, sendErrorStatus(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, proofResponse{
		ID:              p.ID,
		IssuedAt:        p.IssuedAt,
		Identity:        p.Identity,
		Message:         p.Message,
		Display:         p.Display,
		Signature:       p.Signature,
		PublicKey:       p.PublicKey,
		PublicKeyBase64: p.PublicKeyBase64,
	})
}
