package main

import (
	"testing"
	"time"

	"skill-match/internal/pkg/jwt"
	"skill-match/internal/usecase"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func recomputeFlags(t *testing.T, candidate, job string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "recompute"}
	cmd.Flags().String("candidate", "", "")
	cmd.Flags().String("job", "", "")
	if candidate != "" {
		if err := cmd.Flags().Set("candidate", candidate); err != nil {
			t.Fatalf("set candidate: %v", err)
		}
	}
	if job != "" {
		if err := cmd.Flags().Set("job", job); err != nil {
			t.Fatalf("set job: %v", err)
		}
	}
	return cmd
}

func TestBatchRequest(t *testing.T) {
	t.Parallel()

	candidate := uuid.New()
	job := uuid.New()

	cases := []struct {
		name      string
		candidate string
		job       string
		want      usecase.BatchRequest
		wantErr   bool
	}{
		{name: "no flags", want: usecase.BatchRequest{Kind: usecase.BatchFull}},
		{name: "candidate", candidate: candidate.String(), want: usecase.BatchRequest{Kind: usecase.BatchCandidate, CandidateID: candidate}},
		{name: "job", job: job.String(), want: usecase.BatchRequest{Kind: usecase.BatchJob, JobID: job}},
		{name: "both", candidate: candidate.String(), job: job.String(), wantErr: true},
		{name: "bad candidate", candidate: "nope", wantErr: true},
		{name: "bad job", job: "12", wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := batchRequest(recomputeFlags(t, tc.candidate, tc.job))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("batchRequest: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRecomputeCommand_RejectsConflictingFlags(t *testing.T) {
	cmd := recomputeFlags(t, uuid.NewString(), uuid.NewString())
	if err := recomputeCmd.RunE(cmd, nil); err == nil {
		t.Fatalf("expected error before any dependency is opened")
	}
}

func TestMintToken(t *testing.T) {
	t.Parallel()

	user := uuid.New()

	cases := []struct {
		name    string
		secret  string
		user    string
		role    string
		ttl     time.Duration
		wantErr bool
	}{
		{name: "admin", secret: "s3cret", user: user.String(), role: jwt.RoleAdmin, ttl: time.Hour},
		{name: "candidate", secret: "s3cret", user: user.String(), role: jwt.RoleCandidate, ttl: time.Minute},
		{name: "missing secret", user: user.String(), role: jwt.RoleAdmin, ttl: time.Hour, wantErr: true},
		{name: "bad user", secret: "s3cret", user: "someone", role: jwt.RoleAdmin, ttl: time.Hour, wantErr: true},
		{name: "unknown role", secret: "s3cret", user: user.String(), role: "root", ttl: time.Hour, wantErr: true},
		{name: "zero ttl", secret: "s3cret", user: user.String(), role: jwt.RoleAdmin, wantErr: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tok, err := mintToken(tc.secret, "skill-match", tc.user, tc.role, tc.ttl)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got token %q", tok)
				}
				return
			}
			if err != nil {
				t.Fatalf("mintToken: %v", err)
			}
			claims, err := jwt.NewHMACService(tc.secret, "skill-match").ValidateToken(tok)
			if err != nil {
				t.Fatalf("ValidateToken: %v", err)
			}
			if claims.UserID != user || claims.Role != tc.role {
				t.Fatalf("claims = %+v", claims)
			}
		})
	}
}

func TestTokenCommand_RejectsBadSubjectBeforeConfig(t *testing.T) {
	cmd := &cobra.Command{Use: "token"}
	cmd.Flags().String("user", "", "")
	cmd.Flags().String("role", jwt.RoleAdmin, "")
	cmd.Flags().Duration("ttl", time.Hour, "")
	_ = cmd.Flags().Set("user", uuid.NewString())
	_ = cmd.Flags().Set("role", "superuser")

	if err := tokenCmd.RunE(cmd, nil); err == nil {
		t.Fatalf("expected unknown role error")
	}
}
