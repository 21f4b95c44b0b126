// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/jeranaias/marquee-tui/internal/config"
	"github.com/jeranaias/marquee-tui/internal/identity"
	"github.com/jeranaias/marquee-tui/internal/logging"
	"github.com/jeranaias/marquee-tui/internal/model"
	"github.com/jeranaias/marquee-tui/internal/session"
	"github.com/jeranaias/marquee-tui/internal/storage"
	"github.com/jeranaias/marquee-tui/internal/util"
)

// Identity is the identity service as the commands use it.
type Identity interface {
	session.Identity
	Login(ctx context.Context, email, password string) (identity.LoginResult, error)
}

// Env is everything a command needs. main builds it from configuration.
type Env struct {
	Config *config.Config

	// ConfigDir is the marquee home; ConfigFile is an explicit --config
	// path and may be empty.
	ConfigDir  string
	ConfigFile string

	Fs       afero.Fs
	Store    storage.CredentialStore
	Identity Identity

	// Prompter is opened on demand when nil.
	Prompter Prompter

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Log is the root logger. Components add their own component tag.
	Log zerolog.Logger
}

func (e *Env) defaults() {
	if e.Fs == nil {
		e.Fs = afero.NewOsFs()
	}
	if e.Stdin == nil {
		e.Stdin = os.Stdin
	}
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
}

func (e *Env) controller() *session.Controller {
	return session.New(e.Store, e.Identity,
		session.WithLogger(e.Log),
		session.WithRequestTimeout(e.Config.Identity.Timeout()),
	)
}

// configFile is the file "config set" writes and "config path" prints.
func (e *Env) configFile() string {
	if e.ConfigFile != "" {
		return e.ConfigFile
	}
	toml, json := config.PathTOML(e.ConfigDir), config.PathJSON(e.ConfigDir)
	if ok, _ := afero.Exists(e.Fs, toml); !ok {
		if ok, _ := afero.Exists(e.Fs, json); ok {
			return json
		}
	}
	return toml
}

func (e *Env) storageDescription() string {
	desc := e.Config.Storage.Backend
	if p, ok := e.Store.(interface{ Path() string }); ok {
		desc += " (" + p.Path() + ")"
	}
	return desc
}

// Run executes a command other than the TUI.
func Run(ctx context.Context, cmd Command, args Args, env Env) error {
	env.defaults()
	switch cmd {
	case CmdLogin:
		return runLogin(ctx, args, env)
	case CmdLogout:
		return runLogout(ctx, args, env)
	case CmdStatus:
		return runStatus(ctx, args, env, false)
	case CmdWhoami:
		return runStatus(ctx, args, env, true)
	case CmdProfiles:
		return runProfiles(ctx, args, env)
	case CmdConfig:
		return runConfig(args, env)
	case CmdVersion:
		return runVersion(args, env)
	case CmdHelp:
		PrintUsage(env.Stdout)
		return nil
	default:
		return NewUsageError(fmt.Sprintf("%s cannot be run as a command", cmd), "marquee help")
	}
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

func runLogin(ctx context.Context, args Args, env Env) error {
	p := NewArgParser(args.Raw, "password-stdin")
	email := p.Flag("email")
	fromStdin := p.BoolFlag("password-stdin")

	prompter := env.Prompter
	if prompter == nil && (email == "" || !fromStdin) {
		if err := RequiresTTY("log in"); err != nil {
			return err
		}
		lp := NewLinerPrompter()
		defer lp.Close()
		prompter = lp
	}

	var err error
	if email == "" {
		if email, err = prompter.Prompt("Email: "); err != nil {
			return err
		}
	}
	var password string
	if fromStdin {
		password, err = readLine(env.Stdin)
	} else {
		password, err = prompter.Password("Password: ")
	}
	if err != nil {
		return err
	}

	res, err := env.Identity.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return NewCommandError("login", "authenticate", "the identity service refused the login", err)
	}

	ctrl := env.controller()
	defer ctrl.Close()
	if err := ctrl.Login(ctx, res.Credential, res.Account); err != nil && !errors.Is(err, session.ErrProfileFetch) {
		return NewCommandError("login", "start session", "could not start the session", err)
	}
	data := env.statusData(ctrl)

	if args.JSON {
		return NewJSONResponse("login", data).Write(env.Stdout)
	}
	fmt.Fprintf(env.Stdout, "%s Logged in as %s\n", SuccessStyle.Render("[OK]"), res.Account.DisplayName())
	switch {
	case res.Account.IsAdmin:
		fmt.Fprintln(env.Stdout, DimStyle.Render("Administrator session: no profile selection needed."))
	case data.ProfileError != "":
		fmt.Fprintf(env.Stdout, "%s %s\n", WarningStyle.Render("[WARN]"), data.ProfileError)
	default:
		fmt.Fprintf(env.Stdout, "%d profile(s) available. Run marquee to choose one.\n", len(data.Profiles))
	}
	return nil
}

func runLogout(ctx context.Context, args Args, env Env) error {
	ctrl := env.controller()
	defer ctrl.Close()
	err := ctrl.Logout(ctx)
	if err != nil {
		err = NewCommandError("logout", "erase", "the stored session could not be erased", err)
	}
	if args.JSON {
		if err != nil {
			return err
		}
		return NewJSONResponse("logout", map[string]bool{"logged_out": true}).Write(env.Stdout)
	}
	if err == nil {
		fmt.Fprintf(env.Stdout, "%s Logged out\n", SuccessStyle.Render("[OK]"))
	}
	return err
}

func readLine(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", NewUsageError("no password on stdin", "echo $PASSWORD | marquee login --email you@example.com --password-stdin")
	}
	return strings.TrimRight(sc.Text(), "\r"), nil
}

// =============================================================================
// STATUS
// =============================================================================

// statusData describes the controller's session. An account whose profile
// fetch failed still counts as logged in: its credential is kept.
func (e *Env) statusData(ctrl *session.Controller) StatusData {
	s := ctrl.Snapshot()
	data := StatusData{
		LoggedIn: s.IsAuthenticated(),
		Mode:     s.Mode().String(),
		Profiles: profileData(s.Profiles()),
		Server:   e.Config.Identity.BaseURL,
		Storage:  e.storageDescription(),
	}
	account, ok := s.Account()
	if !ok && s.ProfileErr != nil {
		account, ok = ctrl.PendingAccount()
		data.LoggedIn = ok
	}
	if ok {
		data.Account = &AccountData{
			ID:    account.ID,
			Name:  account.DisplayName(),
			Email: account.Email,
			Admin: account.IsAdmin,
		}
	}
	if s.ProfileErr != nil {
		data.ProfileError = s.ProfileErr.Error()
	}
	return data
}

func profileData(profiles []model.Profile) []ProfileData {
	out := make([]ProfileData, len(profiles))
	for i, p := range profiles {
		out[i] = ProfileData{Index: i, Name: p.Name, Emoji: p.Emoji, IsChild: p.IsChild, IsDefault: p.IsDefault}
	}
	return out
}

// restore validates the stored session. A rejected credential is not an
// error here; it is reported in the notice.
func restore(ctx context.Context, env Env) (StatusData, error) {
	ctrl := env.controller()
	defer ctrl.Close()

	err := ctrl.Restore(ctx)
	data := env.statusData(ctrl)
	switch {
	case err == nil, errors.Is(err, session.ErrProfileFetch):
	case errors.Is(err, session.ErrInvalidCredential):
		data.Notice = "The stored session was rejected and has been removed: " + err.Error()
	default:
		return data, NewCommandError("status", "restore", "could not check the session", err)
	}
	return data, nil
}

func runStatus(ctx context.Context, args Args, env Env, whoami bool) error {
	command := "status"
	if whoami {
		command = "whoami"
	}
	data, err := restore(ctx, env)
	if err != nil {
		return err
	}
	if whoami && !data.LoggedIn {
		if data.Notice != "" {
			fmt.Fprintln(env.Stderr, WarningStyle.Render(data.Notice))
		}
		return ErrNotLoggedIn
	}

	if args.JSON {
		return NewJSONResponse(command, data).Write(env.Stdout)
	}

	if whoami {
		fmt.Fprintln(env.Stdout, data.Account.Name)
		return nil
	}

	w := env.Stdout
	fmt.Fprintln(w, TitleStyle.Render("Marquee session"))
	fmt.Fprintln(w, RenderSeparator(min(GetTerminalWidth(), 40)))
	fmt.Fprintln(w, RenderField("Server", data.Server))
	fmt.Fprintln(w, RenderField("Storage", data.Storage))
	if !data.LoggedIn {
		fmt.Fprintln(w, RenderField("Status", "not logged in"))
	} else {
		status := "logged in"
		if data.ProfileError != "" {
			status += ", profiles unavailable"
		}
		fmt.Fprintln(w, RenderField("Status", status))
		account := data.Account.Name
		if data.Account.Email != "" && data.Account.Email != account {
			account += " <" + data.Account.Email + ">"
		}
		fmt.Fprintln(w, RenderField("Account", account))
		if data.Account.Admin {
			fmt.Fprintln(w, RenderField("Role", "administrator"))
		} else {
			fmt.Fprintln(w, RenderField("Profiles", fmt.Sprint(len(data.Profiles))))
		}
	}
	if data.ProfileError != "" {
		fmt.Fprintf(w, "%s %s\n", WarningStyle.Render("[WARN]"), data.ProfileError)
	}
	if data.Notice != "" {
		fmt.Fprintf(w, "%s %s\n", WarningStyle.Render("[WARN]"), data.Notice)
	}
	return nil
}

func runProfiles(ctx context.Context, args Args, env Env) error {
	data, err := restore(ctx, env)
	if err != nil {
		return err
	}
	if data.ProfileError != "" {
		return NewCommandError("profiles", "list", data.ProfileError, session.ErrProfileFetch)
	}
	if !data.LoggedIn {
		return ErrNotLoggedIn
	}

	if args.JSON {
		return NewJSONResponse("profiles", data.Profiles).Write(env.Stdout)
	}
	if data.Account.Admin {
		fmt.Fprintln(env.Stdout, DimStyle.Render("Administrator accounts have no profiles."))
		return nil
	}
	if len(data.Profiles) == 0 {
		fmt.Fprintln(env.Stdout, DimStyle.Render("No profiles yet."))
		return nil
	}
	width := nameColumnWidth(GetTerminalWidth())
	for _, p := range data.Profiles {
		emoji := p.Emoji
		if emoji == "" {
			emoji = model.DefaultProfileEmoji
		}
		var tags []string
		if p.IsDefault {
			tags = append(tags, "default")
		}
		if p.IsChild {
			tags = append(tags, "kids")
		}
		line := fmt.Sprintf("%2d  %s %s", p.Index, emoji, util.PadRight(util.TruncateWidth(p.Name, width), width))
		if len(tags) > 0 {
			line += "  " + DimStyle.Render(strings.Join(tags, ", "))
		}
		fmt.Fprintln(env.Stdout, strings.TrimRight(line, " "))
	}
	return nil
}

// nameColumnWidth sizes the profile name column of the profiles table.
// The index, emoji and tag columns take about 24 cells.
func nameColumnWidth(termWidth int) int {
	return max(8, min(24, termWidth-24))
}

// =============================================================================
// CONFIG
// =============================================================================

func runConfig(args Args, env Env) error {
	p := NewArgParser(args.Raw)
	switch p.Subcommand() {
	case "", "show":
		if args.JSON {
			return NewJSONResponse("config", env.Config).Write(env.Stdout)
		}
		return env.Config.EncodeTOML(env.Stdout)

	case "path":
		path := env.configFile()
		if args.JSON {
			return NewJSONResponse("config", map[string]string{"path": path}).Write(env.Stdout)
		}
		fmt.Fprintln(env.Stdout, path)
		return nil

	case "get":
		key := p.Positional(1)
		if key == "" {
			return NewUsageError("config get needs a key", "marquee config get identity.base_url")
		}
		value, err := env.Config.Get(key)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config", map[string]any{"key": key, "value": value}).Write(env.Stdout)
		}
		fmt.Fprintln(env.Stdout, value)
		return nil

	case "set":
		if p.PositionalCount() < 3 {
			return NewUsageError("config set needs a key and a value", "marquee config set storage.backend sqlite")
		}
		return setConfig(env, p.Positional(1), p.Positional(2), args.JSON)

	default:
		return NewUsageError(fmt.Sprintf("unknown config subcommand %q", p.Subcommand()), "marquee config [show|get|set|path]")
	}
}

// setConfig edits the config file only; environment overrides are not
// written back.
func setConfig(env Env, key, value string, jsonMode bool) error {
	path := env.configFile()
	cfg := config.Default()
	if ok, _ := afero.Exists(env.Fs, path); ok {
		loaded, err := config.LoadWith(config.Options{Fs: env.Fs, Path: path, Environ: map[string]string{}})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfig, err)
		}
		cfg = loaded
	}

	if err := cfg.Set(key, value); err != nil {
		return NewCommandError("config", "set", key, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	save := config.SaveTOML
	if strings.HasSuffix(path, ".json") {
		save = config.SaveJSON
	}
	if err := save(env.Fs, cfg, path); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	cliLog := logging.Component(env.Log, "cli")
	cliLog.Info().Str("key", key).Str("path", path).Msg("config updated")

	if jsonMode {
		stored, _ := cfg.Get(key)
		return NewJSONResponse("config", map[string]any{"key": key, "value": stored, "path": path}).Write(env.Stdout)
	}
	fmt.Fprintf(env.Stdout, "%s %s updated in %s\n", SuccessStyle.Render("[OK]"), key, path)
	return nil
}

// =============================================================================
// VERSION
// =============================================================================

func runVersion(args Args, env Env) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Write(env.Stdout)
	}
	fmt.Fprintf(env.Stdout, "marquee version %s\n", Version)
	fmt.Fprintf(env.Stdout, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(env.Stdout, "  Build date: %s\n", BuildDate)
	return nil
}
