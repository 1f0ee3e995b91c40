package answersctl

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"

	platformgrpc "github.com/louisbranch/answerdesk/internal/platform/grpc"
	answershttp "github.com/louisbranch/answerdesk/internal/services/answers/api/http/answers"
	server "github.com/louisbranch/answerdesk/internal/services/answers/app"
	"github.com/louisbranch/answerdesk/internal/services/answers/domain"
	answerssqlite "github.com/louisbranch/answerdesk/internal/services/answers/storage/sqlite"
	"github.com/louisbranch/answerdesk/internal/services/answers/syndication/linkedin"
	gogrpc "google.golang.org/grpc"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// setupEnv points the CLI at a fresh SQLite database with no platforms.
func setupEnv(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "answers.db")
	t.Setenv("ANSWERDESK_ANSWERS_STORAGE", "sqlite")
	t.Setenv("ANSWERDESK_ANSWERS_DB_PATH", dbPath)
	t.Setenv("ANSWERDESK_ANSWERS_JWT_SECRET", testSecret)
	t.Setenv("ANSWERDESK_ANSWERS_JWT_ISSUER", "answerdesk-test")
	t.Setenv("ANSWERDESK_FACEBOOK_PAGE_ID", "")
	t.Setenv("ANSWERDESK_FACEBOOK_PAGE_TOKEN", "")
	t.Setenv("ANSWERDESK_LINKEDIN_ORGANIZATION_ID", "")
	t.Setenv("ANSWERDESK_REDIS_ADDR", "")
	t.Setenv("ANSWERDESK_TOKEN_SEAL_KEY", "")
	t.Setenv("ANSWERDESK_SOCIAL_TEMPLATES_PATH", "")
	return dbPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootRejectsUnknownFormat(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "--format", "yaml", "mint-token", "--user", "u-1")
	if err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Fatalf("err = %v, want invalid format", err)
	}
}

func TestMintTokenVerifies(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "--format", "json", "mint-token", "--user", "expert-1")
	if err != nil {
		t.Fatalf("mint-token: %v", err)
	}
	var minted mintedToken
	if err := json.Unmarshal([]byte(out), &minted); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}

	auth, err := answershttp.NewAuthenticator(testSecret, "answerdesk-test")
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	actor, err := auth.Verify(minted.Token)
	if err != nil {
		t.Fatalf("verify minted token: %v", err)
	}
	if actor.UserID != "expert-1" || actor.TokenID == "" {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestMintTokenRequiresUser(t *testing.T) {
	setupEnv(t)

	if _, err := execute(t, "mint-token"); err == nil {
		t.Fatal("expected missing --user error")
	}
}

func TestSeedUserRejectsUnknownRole(t *testing.T) {
	setupEnv(t)

	if _, err := execute(t, "seed", "user", "u-1", "--role", "owner"); err == nil {
		t.Fatal("expected unknown role error")
	}
}

func TestSeedAndBulkModerate(t *testing.T) {
	setupEnv(t)

	for _, args := range [][]string{
		{"seed", "user", "asker-1", "--name", "Asker"},
		{"seed", "user", "expert-1", "--name", "Ada", "--role", "expert"},
		{"seed", "user", "mod-1", "--name", "Mod", "--role", "moderator"},
		{"seed", "question", "q-1", "--slug", "how-to-brew", "--title", "How do I brew?", "--author", "asker-1"},
	} {
		if out, err := execute(t, args...); err != nil {
			t.Fatalf("%v: %v (%s)", args, err, out)
		}
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	runtime, err := server.Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build runtime: %v", err)
	}
	answer, err := runtime.Manager.Create(context.Background(), domain.CreateInput{
		QuestionID: "q-1",
		ExpertID:   "expert-1",
		Content:    strings.Repeat("Grind fresh and keep the water just off the boil. ", 2),
	})
	if closeErr := runtime.Close(); closeErr != nil {
		t.Fatalf("close runtime: %v", closeErr)
	}
	if err != nil {
		t.Fatalf("create answer: %v", err)
	}

	out, err := execute(t, "--format", "json", "bulk-moderate", "--moderator", "mod-1", "--comment", "looks good", answer.ID, "missing")
	if err != nil {
		t.Fatalf("bulk-moderate: %v", err)
	}
	var summary bulkOutput
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if summary.Total != 2 || summary.Success != 1 || summary.Errors != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if !summary.Results[0].OK || summary.Results[1].OK || summary.Results[1].Error == "" {
		t.Fatalf("results = %+v", summary.Results)
	}
}

func TestBulkModerateTextOutput(t *testing.T) {
	setupEnv(t)

	if _, err := execute(t, "seed", "user", "mod-1", "--role", "moderator"); err != nil {
		t.Fatalf("seed moderator: %v", err)
	}
	out, err := execute(t, "bulk-moderate", "--moderator", "mod-1", "--reject", "missing")
	if err != nil {
		t.Fatalf("bulk-moderate: %v", err)
	}
	if !strings.Contains(out, "moderated 0/1 answers") || !strings.Contains(out, "missing:") {
		t.Fatalf("output = %q", out)
	}
}

func TestLinkedInSetTokenSealsAtRest(t *testing.T) {
	dbPath := setupEnv(t)
	t.Setenv("ANSWERDESK_TOKEN_SEAL_KEY", "operator-passphrase")

	if out, err := execute(t, "linkedin", "set-token", "--access", "access-1", "--refresh", "refresh-1", "--access-expires-in", "1h"); err != nil {
		t.Fatalf("set-token: %v (%s)", err, out)
	}

	store, err := answerssqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	raw, err := store.GetSocialToken(context.Background(), linkedin.Provider)
	if err != nil {
		t.Fatalf("get raw token: %v", err)
	}
	if raw.AccessToken == "access-1" || raw.RefreshToken == "refresh-1" {
		t.Fatalf("tokens stored in plaintext: %+v", raw)
	}
	if raw.AccessExpiresAt.IsZero() || !raw.RefreshExpiresAt.IsZero() {
		t.Fatalf("expiry = %v / %v", raw.AccessExpiresAt, raw.RefreshExpiresAt)
	}

	sealed, err := linkedin.OpenSealedTokenStore(store, "operator-passphrase")
	if err != nil {
		t.Fatalf("sealed store: %v", err)
	}
	opened, err := sealed.GetSocialToken(context.Background(), linkedin.Provider)
	if err != nil {
		t.Fatalf("get sealed token: %v", err)
	}
	if opened.AccessToken != "access-1" || opened.RefreshToken != "refresh-1" {
		t.Fatalf("opened = %+v", opened)
	}
}

func TestLinkedInSetTokenRequiresAccess(t *testing.T) {
	setupEnv(t)

	if _, err := execute(t, "linkedin", "set-token", "--refresh", "r"); err == nil {
		t.Fatal("expected missing --access error")
	}
}

func TestHealthAgainstRunningServer(t *testing.T) {
	setupEnv(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	grpcServer := gogrpc.NewServer()
	platformgrpc.NewHealthServer(grpcServer, server.HealthServiceName)
	go func() { _ = grpcServer.Serve(listener) }()
	t.Cleanup(grpcServer.Stop)

	out, err := execute(t, "health", "--addr", listener.Addr().String(), "--timeout", "5s")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !strings.Contains(out, "is SERVING") {
		t.Fatalf("output = %q", out)
	}
}

func TestHealthTimesOut(t *testing.T) {
	setupEnv(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	_ = listener.Close()

	if _, err := execute(t, "health", "--addr", addr, "--timeout", "300ms"); err == nil {
		t.Fatal("expected health timeout")
	}
}
