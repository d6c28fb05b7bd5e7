package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestMakeCodeParseCode(t *testing.T) {
	code := MakeCode(ServiceAgent, CategoryPermission, 2)
	if code != 2003002 {
		t.Errorf("MakeCode = %d, want 2003002", code)
	}

	service, category, sequence := ParseCode(code)
	if service != ServiceAgent || category != CategoryPermission || sequence != 2 {
		t.Errorf("ParseCode = (%d, %d, %d), want (20, 3, 2)", service, category, sequence)
	}
}

func TestErrnoIs(t *testing.T) {
	err := ErrKnowledgeBaseNotFound.WithMessage("knowledge base kb_x not found")
	if !stderrors.Is(err, ErrKnowledgeBaseNotFound) {
		t.Error("WithMessage should preserve code identity for errors.Is")
	}
	if stderrors.Is(err, ErrDocumentNotFound) {
		t.Error("distinct codes must not compare equal")
	}
}

func TestWithCauseUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := ErrAuthzUnavailable.WithCause(cause)

	if stderrors.Unwrap(err) != cause {
		t.Error("Unwrap should return the cause")
	}
	if !stderrors.Is(err, ErrAuthzUnavailable) {
		t.Error("wrapped errno should still match its code")
	}
}

func TestHTTPAndGRPCMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *Errno
		http int
		grpc codes.Code
	}{
		{"permission denied", ErrKnowledgeBaseAccessDenied, http.StatusForbidden, codes.PermissionDenied},
		{"not found", ErrKnowledgeBaseNotFound, http.StatusNotFound, codes.NotFound},
		{"conflict", ErrKnowledgeBaseExists, http.StatusConflict, codes.AlreadyExists},
		{"upstream", ErrAuthzUnavailable, http.StatusServiceUnavailable, codes.Unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.http {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.http)
			}
			if got := tt.err.GRPCStatus(); got != tt.grpc {
				t.Errorf("GRPCStatus = %v, want %v", got, tt.grpc)
			}
		})
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil) != nil {
		t.Error("FromError(nil) should be nil")
	}

	plain := fmt.Errorf("boom")
	if got := FromError(plain); got.Code != ErrInternal.Code {
		t.Errorf("plain error should map to ErrInternal, got code %d", got.Code)
	}

	wrapped := fmt.Errorf("store: %w", ErrQueryFailed)
	if got := FromError(wrapped); got.Code != ErrQueryFailed.Code {
		t.Errorf("wrapped errno should be recovered, got code %d", got.Code)
	}
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(ErrQueryTimeout.Code)
	if !ok || e != ErrQueryTimeout {
		t.Error("registered errno should be retrievable by code")
	}
	if _, ok := Lookup(9999999); ok {
		t.Error("unregistered code should not be found")
	}
}
