// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/marquee-tui/internal/config"
	"github.com/jeranaias/marquee-tui/internal/identity"
	"github.com/jeranaias/marquee-tui/internal/identity/identitytest"
	"github.com/jeranaias/marquee-tui/internal/session"
	"github.com/jeranaias/marquee-tui/internal/storage"
)

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "flag with value",
			args:    []string{"login", "--email", "sam@example.com"},
			wantSub: "login",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("email") != "sam@example.com" {
					t.Errorf("Flag(email) = %q", p.Flag("email"))
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"--email=a@b.c"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("email") != "a@b.c" {
					t.Errorf("Flag(email) = %q", p.Flag("email"))
				}
			},
		},
		{
			name:    "declared boolean does not consume positional",
			args:    []string{"--password-stdin", "extra"},
			bools:   []string{"password-stdin"},
			wantSub: "extra",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("password-stdin") {
					t.Error("BoolFlag(password-stdin) should be true")
				}
			},
		},
		{
			name:    "explicit boolean value",
			args:    []string{"--force=false"},
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("force") || !p.HasFlag("force") {
					t.Error("--force=false should be present and false")
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"set", "--", "--weird"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(1) != "--weird" {
					t.Errorf("Positional(1) = %q", p.Positional(1))
				}
			},
		},
		{
			name:    "out of range positional",
			args:    []string{"get"},
			wantSub: "get",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(5) != "" || len(p.PositionalFrom(3)) != 0 {
					t.Error("out of range positionals should be empty")
				}
				if p.FlagOrDefault("missing", "dflt") != "dflt" {
					t.Error("FlagOrDefault should fall back")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.bools...)
			if got := p.Subcommand(); got != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", got, tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		argv []string
		want Command
	}{
		{nil, CmdTUI},
		{[]string{"tui"}, CmdTUI},
		{[]string{"login", "--email", "x"}, CmdLogin},
		{[]string{"logout"}, CmdLogout},
		{[]string{"s"}, CmdStatus},
		{[]string{"STATUS"}, CmdStatus},
		{[]string{"whoami"}, CmdWhoami},
		{[]string{"profiles"}, CmdProfiles},
		{[]string{"config", "get", "ui.theme"}, CmdConfig},
		{[]string{"--version"}, CmdVersion},
		{[]string{"-h"}, CmdHelp},
	}
	for _, tt := range tests {
		cmd, _, err := Parse(tt.argv)
		if err != nil {
			t.Errorf("Parse(%v) error: %v", tt.argv, err)
			continue
		}
		if cmd != tt.want {
			t.Errorf("Parse(%v) = %s, want %s", tt.argv, cmd, tt.want)
		}
	}
}

func TestParse_GlobalFlagsAnywhere(t *testing.T) {
	cmd, args, err := Parse([]string{"--json", "status", "--server", "http://id:5000", "--config=/tmp/m.toml", "-v", "--ephemeral"})
	require.NoError(t, err)
	require.Equal(t, CmdStatus, cmd)
	require.True(t, args.JSON)
	require.True(t, args.Verbose)
	require.True(t, args.Ephemeral)
	require.Equal(t, "http://id:5000", args.Server)
	require.Equal(t, "/tmp/m.toml", args.ConfigPath)
	require.Empty(t, args.Raw)
}

func TestParse_Errors(t *testing.T) {
	_, _, err := Parse([]string{"frobnicate"})
	require.Equal(t, ExitUsageError, GetExitCode(err))

	_, _, err = Parse([]string{"status", "--server"})
	require.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestCommand_String(t *testing.T) {
	require.Equal(t, "whoami", CmdWhoami.String())
	require.Equal(t, "command(99)", Command(99).String())
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, ApplyOverrides(cfg, Args{Server: "https://id.example.com/", Ephemeral: true}))
	require.Equal(t, "https://id.example.com", cfg.Identity.BaseURL)
	require.Equal(t, "memory", cfg.Storage.Backend)
	require.False(t, cfg.Storage.Watch)

	err := ApplyOverrides(config.Default(), Args{Server: "not a url"})
	require.ErrorIs(t, err, ErrConfig)
	require.Equal(t, ExitConfigError, GetExitCode(err))
}

func TestNameColumnWidth(t *testing.T) {
	tests := []struct {
		term int
		want int
	}{
		{120, 24},
		{48, 24},
		{40, 16},
		{20, 8},
		{0, 8},
	}
	for _, tt := range tests {
		if got := nameColumnWidth(tt.term); got != tt.want {
			t.Errorf("nameColumnWidth(%d) = %d, want %d", tt.term, got, tt.want)
		}
	}
	require.Positive(t, GetTerminalWidth())
}

// =============================================================================
// EXIT CODES
// =============================================================================

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", NewUsageError("bad", ""), ExitUsageError},
		{"tty", &TTYRequiredError{Operation: "log in"}, ExitUsageError},
		{"config", fmt.Errorf("%w: x", ErrConfig), ExitConfigError},
		{"unknown key", fmt.Errorf("%w: nope", config.ErrUnknownKey), ExitConfigError},
		{"not logged in", ErrNotLoggedIn, ExitAuthError},
		{"rejected", NewCommandError("login", "authenticate", "refused", &identity.StatusError{Status: http.StatusUnauthorized}), ExitAuthError},
		{"invalid credential", fmt.Errorf("%w: x", session.ErrInvalidCredential), ExitAuthError},
		{"deadline", context.DeadlineExceeded, ExitNetworkError},
		{"net", fmt.Errorf("dial: %w", timeoutErr{}), ExitNetworkError},
		{"5xx", &identity.StatusError{Status: http.StatusBadGateway}, ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, NewCommandError("config", "set", "ui.theme", errors.New("bad")), true)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, false, out["success"])
	require.Equal(t, "config", out["command"])
	require.Equal(t, "set", out["action"])

	buf.Reset()
	DisplayError(&buf, errors.New("plain"), false)
	require.Contains(t, buf.String(), "plain")

	buf.Reset()
	DisplayError(&buf, nil, false)
	require.Empty(t, buf.String())
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

type fakePrompter struct {
	email, password string
	err             error
}

func (p *fakePrompter) Prompt(string) (string, error)   { return p.email, p.err }
func (p *fakePrompter) Password(string) (string, error) { return p.password, p.err }
func (p *fakePrompter) Close() error                    { return nil }

type testEnv struct {
	Env
	srv    *identitytest.Server
	store  *storage.MemoryStore
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := identitytest.NewServer(t)
	cfg := config.Default()
	cfg.Identity.BaseURL = srv.URL
	cfg.Storage.Backend = "memory"

	client := identity.NewClient(srv.URL).
		WithMaxRetries(0).
		WithRateLimit(0).
		WithTimeout(2 * time.Second)

	te := &testEnv{
		srv:    srv,
		store:  storage.NewMemoryStore(),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	te.Env = Env{
		Config:    cfg,
		ConfigDir: "/home/test/.marquee",
		Fs:        afero.NewMemMapFs(),
		Store:     te.store,
		Identity:  client,
		Stdin:     strings.NewReader(""),
		Stdout:    te.stdout,
		Stderr:    te.stderr,
		Log:       zerolog.Nop(),
	}
	return te
}

func (te *testEnv) run(t *testing.T, argv ...string) error {
	t.Helper()
	te.stdout.Reset()
	te.stderr.Reset()
	cmd, args, err := Parse(argv)
	require.NoError(t, err)
	return Run(context.Background(), cmd, args, te.Env)
}

func decode(t *testing.T, buf *bytes.Buffer) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	return resp
}

func TestLogin_StoresCredential(t *testing.T) {
	te := newTestEnv(t)
	te.srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com", Password: "secret"})
	te.Prompter = &fakePrompter{email: "sam@example.com", password: "secret"}

	require.NoError(t, te.run(t, "login"))
	require.Contains(t, te.stdout.String(), "Logged in as Sam")
	require.Contains(t, te.stdout.String(), "1 profile(s) available")

	cred, err := te.store.Load(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, cred)
}

func TestLogin_PasswordFromStdin(t *testing.T) {
	te := newTestEnv(t)
	te.srv.AddUser(identitytest.User{Name: "Root", Email: "root@example.com", Password: "pw", IsAdmin: true})
	te.Stdin = strings.NewReader("pw\n")

	require.NoError(t, te.run(t, "--json", "login", "--email", "root@example.com", "--password-stdin"))
	resp := decode(t, te.stdout)
	require.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	require.Equal(t, "main_application", data["mode"])
	require.Equal(t, true, data["account"].(map[string]any)["admin"])
}

func TestLogin_WrongPassword(t *testing.T) {
	te := newTestEnv(t)
	te.srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com", Password: "secret"})
	te.Prompter = &fakePrompter{email: "sam@example.com", password: "nope"}

	err := te.run(t, "login")
	require.Error(t, err)
	require.Equal(t, ExitAuthError, GetExitCode(err))

	_, err = te.store.Load(context.Background())
	require.ErrorIs(t, err, storage.ErrNoCredential)
}

func TestLogin_PromptAborted(t *testing.T) {
	te := newTestEnv(t)
	te.Prompter = &fakePrompter{err: ErrAborted}
	require.ErrorIs(t, te.run(t, "login"), ErrAborted)
}

func TestLogin_EmptyStdin(t *testing.T) {
	te := newTestEnv(t)
	err := te.run(t, "login", "--email", "a@b.c", "--password-stdin")
	require.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestStatus_LoggedOut(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, te.run(t, "status"))
	out := te.stdout.String()
	require.Contains(t, out, "not logged in")
	require.Contains(t, out, te.srv.URL)
	require.Contains(t, out, "memory")
}

func TestStatus_LoggedInJSON(t *testing.T) {
	te := newTestEnv(t)
	cred := te.srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com", Password: "pw"})
	require.NoError(t, te.store.Save(context.Background(), cred))

	require.NoError(t, te.run(t, "status", "--json"))
	resp := decode(t, te.stdout)
	require.Equal(t, "status", resp.Command)
	data := resp.Data.(map[string]any)
	require.Equal(t, true, data["logged_in"])
	require.Equal(t, "profile_selection", data["mode"])
	require.Len(t, data["profiles"], 1)
}

func TestStatus_RejectedCredentialIsRemoved(t *testing.T) {
	te := newTestEnv(t)
	cred := te.srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com", Password: "pw"})
	te.srv.Revoke(cred)
	require.NoError(t, te.store.Save(context.Background(), cred))

	require.NoError(t, te.run(t, "status"))
	require.Contains(t, te.stdout.String(), "rejected and has been removed")

	_, err := te.store.Load(context.Background())
	require.ErrorIs(t, err, storage.ErrNoCredential)
}

func TestWhoami(t *testing.T) {
	te := newTestEnv(t)
	err := te.run(t, "whoami")
	require.ErrorIs(t, err, ErrNotLoggedIn)
	require.Equal(t, ExitAuthError, GetExitCode(err))

	cred := te.srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com", Password: "pw"})
	require.NoError(t, te.store.Save(context.Background(), cred))
	require.NoError(t, te.run(t, "whoami"))
	require.Equal(t, "Sam\n", te.stdout.String())
}

func TestProfiles(t *testing.T) {
	te := newTestEnv(t)
	cred := te.srv.AddUser(identitytest.User{
		Name: "Sam", Email: "sam@example.com", Password: "pw",
		Profiles: []identitytest.Profile{
			{Name: "Sam", Emoji: "🙂", IsDefault: true},
			{Name: "Kid", Emoji: "🧸", IsChild: true},
		},
	})
	require.NoError(t, te.store.Save(context.Background(), cred))

	require.NoError(t, te.run(t, "profiles"))
	lines := strings.Split(strings.TrimSpace(te.stdout.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "Sam")
	require.Contains(t, lines[0], "default")
	require.Contains(t, lines[1], "kids")

	require.NoError(t, te.run(t, "profiles", "--json"))
	resp := decode(t, te.stdout)
	require.Len(t, resp.Data, 2)
}

func TestProfiles_Administrator(t *testing.T) {
	te := newTestEnv(t)
	cred := te.srv.AddUser(identitytest.User{Name: "Root", Email: "root@example.com", Password: "pw", IsAdmin: true})
	require.NoError(t, te.store.Save(context.Background(), cred))

	require.NoError(t, te.run(t, "profiles"))
	require.Contains(t, te.stdout.String(), "Administrator accounts have no profiles")
}

func TestProfiles_FetchFailure(t *testing.T) {
	te := newTestEnv(t)
	cred := te.srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com", Password: "pw"})
	require.NoError(t, te.store.Save(context.Background(), cred))
	te.srv.Fail("/user/profiles", http.StatusServiceUnavailable)

	err := te.run(t, "profiles")
	require.ErrorIs(t, err, session.ErrProfileFetch)
	require.NotErrorIs(t, err, ErrNotLoggedIn)
	require.Equal(t, ExitGeneralError, GetExitCode(err))

	// The session survives a profile failure.
	_, err = te.store.Load(context.Background())
	require.NoError(t, err)
}

func TestStatusAndWhoami_ProfileFetchFailureStaysLoggedIn(t *testing.T) {
	te := newTestEnv(t)
	cred := te.srv.AddUser(identitytest.User{Name: "Sam", Email: "sam@example.com", Password: "pw"})
	require.NoError(t, te.store.Save(context.Background(), cred))

	te.srv.Fail("/user/profiles", http.StatusServiceUnavailable)
	require.NoError(t, te.run(t, "status"))
	out := te.stdout.String()
	require.Contains(t, out, "logged in, profiles unavailable")
	require.Contains(t, out, "Sam <sam@example.com>")
	require.NotContains(t, out, "not logged in")

	te.srv.Fail("/user/profiles", http.StatusServiceUnavailable)
	require.NoError(t, te.run(t, "status", "--json"))
	data := decode(t, te.stdout).Data.(map[string]any)
	require.Equal(t, true, data["logged_in"])
	require.NotEmpty(t, data["profile_error"])

	te.srv.Fail("/user/profiles", http.StatusServiceUnavailable)
	require.NoError(t, te.run(t, "whoami"))
	require.Equal(t, "Sam\n", te.stdout.String())
}

func TestProfiles_NotLoggedIn(t *testing.T) {
	te := newTestEnv(t)
	require.ErrorIs(t, te.run(t, "profiles"), ErrNotLoggedIn)
}

func TestLogout(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, te.store.Save(context.Background(), "tok"))

	require.NoError(t, te.run(t, "logout"))
	require.Contains(t, te.stdout.String(), "Logged out")
	_, err := te.store.Load(context.Background())
	require.ErrorIs(t, err, storage.ErrNoCredential)

	require.NoError(t, te.run(t, "logout", "--json"))
	require.True(t, decode(t, te.stdout).Success)
}

func TestCommands_LogLinesCarryOneComponent(t *testing.T) {
	te := newTestEnv(t)
	var logs bytes.Buffer
	te.Log = zerolog.New(&logs)

	require.NoError(t, te.store.Save(context.Background(), "tok"))
	require.NoError(t, te.run(t, "logout"))
	require.NoError(t, te.run(t, "config", "set", "ui.theme", "dark"))

	out := logs.String()
	require.Contains(t, out, `"component":"session"`)
	require.Contains(t, out, `"component":"cli"`)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		require.Equal(t, 1, strings.Count(line, `"component":`), line)
	}
}

// =============================================================================
// CONFIG COMMAND TESTS
// =============================================================================

func TestConfig_ShowGetPath(t *testing.T) {
	te := newTestEnv(t)

	require.NoError(t, te.run(t, "config"))
	require.Contains(t, te.stdout.String(), "[identity]")

	require.NoError(t, te.run(t, "config", "get", "identity.base_url"))
	require.Equal(t, te.srv.URL+"\n", te.stdout.String())

	require.NoError(t, te.run(t, "config", "path"))
	require.Equal(t, config.PathTOML("/home/test/.marquee")+"\n", te.stdout.String())

	require.NoError(t, te.run(t, "config", "show", "--json"))
	require.True(t, decode(t, te.stdout).Success)

	err := te.run(t, "config", "get")
	require.Equal(t, ExitUsageError, GetExitCode(err))

	err = te.run(t, "config", "get", "identity.nope")
	require.Equal(t, ExitConfigError, GetExitCode(err))

	err = te.run(t, "config", "frob")
	require.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestConfig_Set(t *testing.T) {
	te := newTestEnv(t)

	require.NoError(t, te.run(t, "config", "set", "storage.backend", "sqlite"))
	require.Contains(t, te.stdout.String(), "storage.backend updated")

	path := config.PathTOML("/home/test/.marquee")
	cfg, err := config.LoadWith(config.Options{Fs: te.Fs, Path: path, Environ: map[string]string{}})
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Storage.Backend)

	// A second set keeps the first.
	require.NoError(t, te.run(t, "config", "set", "ui.splash", "no"))
	cfg, err = config.LoadWith(config.Options{Fs: te.Fs, Path: path, Environ: map[string]string{}})
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Storage.Backend)
	require.False(t, cfg.UI.Splash)
}

func TestConfig_SetRejectsInvalid(t *testing.T) {
	te := newTestEnv(t)

	err := te.run(t, "config", "set", "storage.backend", "floppy")
	require.Equal(t, ExitConfigError, GetExitCode(err))

	err = te.run(t, "config", "set", "storage.backend")
	require.Equal(t, ExitUsageError, GetExitCode(err))

	exists, _ := afero.Exists(te.Fs, config.PathTOML("/home/test/.marquee"))
	require.False(t, exists, "nothing is written on failure")
}

func TestConfig_SetExplicitJSONFile(t *testing.T) {
	te := newTestEnv(t)
	te.ConfigFile = "/etc/marquee.json"

	require.NoError(t, te.run(t, "config", "set", "log.level", "debug"))
	cfg, err := config.LoadWith(config.Options{Fs: te.Fs, Path: "/etc/marquee.json", Environ: map[string]string{}})
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
}

// =============================================================================
// VERSION / HELP
// =============================================================================

func TestVersionAndHelp(t *testing.T) {
	te := newTestEnv(t)

	require.NoError(t, te.run(t, "version"))
	require.Contains(t, te.stdout.String(), "marquee version "+Version)

	require.NoError(t, te.run(t, "version", "--json"))
	data := decode(t, te.stdout).Data.(map[string]any)
	require.Equal(t, Version, data["version"])

	require.NoError(t, te.run(t, "help"))
	require.Contains(t, te.stdout.String(), "marquee config set")

	err := Run(context.Background(), CmdTUI, Args{}, te.Env)
	require.Equal(t, ExitUsageError, GetExitCode(err))
}
