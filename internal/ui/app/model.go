// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/marquee-tui/internal/identity"
	"github.com/jeranaias/marquee-tui/internal/model"
	"github.com/jeranaias/marquee-tui/internal/session"
	"github.com/jeranaias/marquee-tui/internal/storage"
	"github.com/jeranaias/marquee-tui/internal/ui/components"
	"github.com/jeranaias/marquee-tui/internal/ui/styles"
)

// Identity is the part of the identity service the screens call directly.
// Session validation goes through the session controller instead.
type Identity interface {
	Login(ctx context.Context, email, password string) (identity.LoginResult, error)
	Register(ctx context.Context, req identity.RegisterRequest) (identity.RegisterResult, error)
	CurrentAccount(ctx context.Context, credential string) (model.Account, error)
	CreateProfile(ctx context.Context, credential string, in identity.ProfileInput) (model.Profile, error)
	UpdateProfile(ctx context.Context, credential string, index int, name, emoji string) error
	ResetPassword(ctx context.Context, credential, newPassword string) error
}

// =============================================================================
// SCREENS
// =============================================================================

// Screen identifies what the model is showing.
type Screen int

const (
	ScreenSplash Screen = iota
	ScreenLoading
	ScreenLogin
	ScreenRegister
	ScreenProfiles
	ScreenCreateProfile
	ScreenHome
	ScreenSettings
	ScreenSwitchProfile
)

// String returns the screen name shown in the status bar.
func (s Screen) String() string {
	switch s {
	case ScreenSplash:
		return "welcome"
	case ScreenLoading:
		return "loading"
	case ScreenLogin:
		return "log in"
	case ScreenRegister:
		return "register"
	case ScreenProfiles:
		return "profiles"
	case ScreenCreateProfile:
		return "new profile"
	case ScreenHome:
		return "home"
	case ScreenSettings:
		return "settings"
	case ScreenSwitchProfile:
		return "switch profile"
	default:
		return fmt.Sprintf("screen(%d)", int(s))
	}
}

// =============================================================================
// MODEL
// =============================================================================

// Options configures a Model.
type Options struct {
	Controller *session.Controller
	Identity   Identity
	Theme      *styles.Theme
	Version    string

	// Splash is how long the splash screen stays up; zero skips it.
	Splash time.Duration

	// Changes delivers credential changes from other processes. Optional.
	Changes <-chan storage.Change

	Logger zerolog.Logger
}

// Model is the root bubbletea model. It never decides what the user may
// see on its own: the screen family always comes from session.Project.
type Model struct {
	ctrl    *session.Controller
	id      Identity
	theme   *styles.Theme
	keys    KeyMap
	log     zerolog.Logger
	version string

	ctx         context.Context
	cancel      context.CancelFunc
	states      <-chan session.Snapshot
	unsubscribe func()
	changes     <-chan storage.Change

	snap      session.Snapshot
	splashFor time.Duration
	splashing bool
	width     int
	height    int

	header  *components.Header
	status  *components.StatusBar
	spinner components.Spinner
	toasts  *components.ToastManager
	grid    *components.ProfileGrid

	// Sub-screens inside a mode. They reset whenever the mode changes.
	registering bool
	creating    bool
	editing     bool
	switching   bool

	loginForm    *Form
	registerForm *Form
	createForm   *Form
	settingsForm *Form

	info *infoPanel
}

// New creates the root model and subscribes it to the controller.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	ctx, cancel := context.WithCancel(context.Background())
	states, unsubscribe := opts.Controller.Subscribe()

	m := Model{
		ctrl:        opts.Controller,
		id:          opts.Identity,
		theme:       theme,
		keys:        DefaultKeyMap(),
		log:         opts.Logger.With().Str("component", "ui").Logger(),
		version:     opts.Version,
		ctx:         ctx,
		cancel:      cancel,
		states:      states,
		unsubscribe: unsubscribe,
		changes:     opts.Changes,
		snap:        opts.Controller.Snapshot(),
		splashFor:   opts.Splash,
		splashing:   opts.Splash > 0,
		width:       80,
		height:      24,
		header:      components.NewHeader(theme),
		status:      components.NewStatusBar(theme),
		spinner:     components.NewSpinner(theme, "Checking your session"),
		toasts:      components.NewToastManager(),
		grid:        components.NewProfileGrid(theme),
		info:        newInfoPanel(theme),
	}
	m.spinner.Start()
	m.resetForms()
	m.syncComponents()
	return m
}

// Init starts the session restore and the background listeners.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		session.WaitForState(m.states),
		session.RestoreCmd(m.ctx, m.ctrl),
		m.spinner.Start(),
		components.ToastTickCmd(),
	}
	if m.splashing {
		cmds = append(cmds, splashCmd(m.splashFor))
	}
	if cmd := waitForChange(m.changes); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Screen returns the screen for the current snapshot. Loading always wins
// over the mode so nothing stale is shown while the session is resolved.
func (m Model) Screen() Screen {
	if m.splashing {
		return ScreenSplash
	}
	if m.snap.Loading {
		return ScreenLoading
	}
	switch session.Project(m.snap) {
	case session.ModeProfileSelection:
		if m.creating {
			return ScreenCreateProfile
		}
		return ScreenProfiles
	case session.ModeMainApplication:
		switch {
		case m.editing:
			return ScreenSettings
		case m.switching:
			return ScreenSwitchProfile
		}
		return ScreenHome
	default:
		if m.registering {
			return ScreenRegister
		}
		return ScreenLogin
	}
}

// Snapshot returns the last session snapshot the model received.
func (m Model) Snapshot() session.Snapshot {
	return m.snap
}

// Close stops background work started by the model.
func (m Model) Close() {
	m.cancel()
	m.unsubscribe()
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.syncComponents()
		return m, nil

	case splashDoneMsg:
		m.splashing = false
		m.syncComponents()
		return m, nil

	case session.StateMsg:
		cmds = append(cmds, m.applySnapshot(msg.Snapshot), session.WaitForState(m.states))
		return m, tea.Batch(cmds...)

	case session.ResultMsg:
		m.handleResult(msg)
		return m, nil

	case authFailedMsg:
		form := m.loginForm
		if msg.Register {
			form = m.registerForm
		}
		form.SetBusy(false)
		form.SetError(describe(msg.Err))
		return m, nil

	case profileCreatedMsg:
		return m.handleProfileCreated(msg)

	case profileSavedMsg:
		return m.handleProfileSaved(msg)

	case logoutDoneMsg:
		if msg.Err != nil {
			m.toasts.AddWarning("Logged out, but the saved session could not be erased")
		}
		return m, nil

	case credentialChangedMsg:
		m.log.Info().Bool("present", msg.Change.Present).Msg("credential changed in another process")
		if msg.Change.Present {
			m.toasts.AddStatus("Session changed in another window")
		} else {
			m.toasts.AddStatus("Logged out in another window")
		}
		return m, tea.Batch(session.RestoreCmd(m.ctx, m.ctrl), waitForChange(m.changes))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case components.ToastTickMsg:
		m.toasts.Tick()
		return m, components.ToastTickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// applySnapshot adopts a new snapshot. Sub-screens belong to a mode and
// are dropped when the mode changes.
func (m *Model) applySnapshot(s session.Snapshot) tea.Cmd {
	if s.Version < m.snap.Version {
		return nil
	}
	prev := m.snap
	m.snap = s

	if session.Project(prev) != session.Project(s) {
		m.registering = false
		m.creating = false
		m.editing = false
		m.switching = false
		m.grid.Cursor = 0
		m.resetForms()
	}
	m.syncComponents()

	if s.Loading && !prev.Loading {
		m.spinner.Stop()
		if s.IsAuthenticated() {
			m.spinner.SetMessage("Loading profiles")
		} else {
			m.spinner.SetMessage("Checking your session")
		}
		return m.spinner.Start()
	}
	return nil
}

func (m *Model) handleResult(msg session.ResultMsg) {
	if msg.Op == session.OpLogin {
		m.loginForm.SetBusy(false)
		m.registerForm.SetBusy(false)
	}
	err := msg.Err
	switch {
	case err == nil,
		errors.Is(err, session.ErrSuperseded),
		errors.Is(err, session.ErrNothingToRetry),
		errors.Is(err, session.ErrProfileFetch):
		// Profile failures are shown from the snapshot.
	case msg.Op == session.OpRestore && errors.Is(err, session.ErrInvalidCredential):
		m.toasts.AddWarning("Your session has expired. Please log in again.")
	default:
		m.log.Warn().Err(err).Str("op", string(msg.Op)).Msg("session operation failed")
		m.toasts.AddError(describe(err))
	}
}

func (m Model) handleProfileCreated(msg profileCreatedMsg) (tea.Model, tea.Cmd) {
	m.createForm.SetBusy(false)
	if msg.Err != nil {
		m.createForm.SetError(describe(msg.Err))
		return m, nil
	}
	m.creating = false
	m.createForm = newCreateForm()
	m.toasts.AddSuccess(fmt.Sprintf("Created profile %s", msg.Profile.Label()))
	m.snap = m.ctrl.Snapshot()
	m.syncComponents()
	return m, nil
}

func (m Model) handleProfileSaved(msg profileSavedMsg) (tea.Model, tea.Cmd) {
	m.settingsForm.SetBusy(false)
	m.snap = m.ctrl.Snapshot()
	if msg.Err != nil {
		m.settingsForm.SetError(describe(msg.Err))
		m.syncComponents()
		return m, nil
	}
	m.editing = false
	if msg.PasswordChanged {
		m.toasts.AddSuccess("Profile and password saved")
	} else {
		m.toasts.AddSuccess("Profile saved")
	}
	m.syncComponents()
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Close()
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Dismiss) && m.toasts.HasToasts() {
		m.toasts.Dismiss()
		return m, nil
	}
	if key.Matches(msg, m.keys.Logout) && m.snap.IsAuthenticated() {
		return m, m.logoutCmd()
	}

	switch m.Screen() {
	case ScreenSplash:
		m.splashing = false
		m.syncComponents()
		return m, nil
	case ScreenLoading:
		return m, nil
	case ScreenLogin:
		return m.handleLoginKey(msg)
	case ScreenRegister:
		return m.handleRegisterKey(msg)
	case ScreenProfiles, ScreenSwitchProfile:
		return m.handlePickerKey(msg)
	case ScreenCreateProfile:
		return m.handleCreateKey(msg)
	case ScreenHome:
		return m.handleHomeKey(msg)
	case ScreenSettings:
		return m.handleSettingsKey(msg)
	}
	return m, nil
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.SwitchForm):
		m.registering = true
		m.syncComponents()
		return m, nil
	case key.Matches(msg, m.keys.Retry) && m.snap.ProfileErr != nil:
		return m, session.RetryProfilesCmd(m.ctx, m.ctrl)
	}
	submitted, cmd := m.loginForm.Update(msg, m.keys)
	if !submitted {
		return m, cmd
	}
	return m, m.submitLogin()
}

func (m Model) handleRegisterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.SwitchForm), key.Matches(msg, m.keys.Back):
		m.registering = false
		m.syncComponents()
		return m, nil
	}
	submitted, cmd := m.registerForm.Update(msg, m.keys)
	if !submitted {
		return m, cmd
	}
	return m, m.submitRegister()
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		if m.switching {
			m.switching = false
			m.syncComponents()
		}
		return m, nil
	case key.Matches(msg, m.keys.Retry) && m.snap.ProfileErr != nil:
		return m, session.RetryProfilesCmd(m.ctx, m.ctrl)
	case key.Matches(msg, m.keys.Left):
		m.grid.Move(-1)
	case key.Matches(msg, m.keys.Right):
		m.grid.Move(1)
	case key.Matches(msg, m.keys.Up):
		m.grid.Move(-m.grid.Columns())
	case key.Matches(msg, m.keys.Down):
		m.grid.Move(m.grid.Columns())
	case key.Matches(msg, m.keys.NewProfile) && !m.switching:
		m.openCreate()
	case key.Matches(msg, m.keys.Submit):
		if m.grid.OnAddCard() {
			m.openCreate()
			return m, nil
		}
		p, ok := m.grid.Selected()
		if !ok {
			return m, nil
		}
		if err := m.ctrl.SelectProfile(p.ID); err != nil {
			m.toasts.AddError(describe(err))
			return m, nil
		}
		m.switching = false
		m.snap = m.ctrl.Snapshot()
		m.syncComponents()
	}
	return m, nil
}

func (m *Model) openCreate() {
	m.creating = true
	m.createForm = newCreateForm()
	m.syncComponents()
}

func (m Model) handleCreateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) && !m.createForm.Busy() {
		m.creating = false
		m.syncComponents()
		return m, nil
	}
	submitted, cmd := m.createForm.Update(msg, m.keys)
	if !submitted {
		return m, cmd
	}
	return m, m.submitCreate()
}

func (m Model) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.snap.InfoOpen {
		if key.Matches(msg, m.keys.Info) || key.Matches(msg, m.keys.Back) {
			m.ctrl.SetInfoOpen(false)
			m.snap = m.ctrl.Snapshot()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Info):
		m.ctrl.SetInfoOpen(true)
	case key.Matches(msg, m.keys.Sidebar):
		m.ctrl.SetSidebarOpen(!m.snap.SidebarOpen)
	case key.Matches(msg, m.keys.Back) && m.snap.SidebarOpen:
		m.ctrl.SetSidebarOpen(false)
	case key.Matches(msg, m.keys.SwitchProfile):
		if m.snap.IsAdmin() {
			m.toasts.AddStatus("Administrators have no profiles")
			return m, nil
		}
		m.switching = true
		m.grid.AddCard = false
		m.grid.Cursor = max(model.IndexOf(m.snap.Profiles(), m.selectedID()), 0)
	case key.Matches(msg, m.keys.Settings):
		if m.snap.IsAdmin() {
			m.toasts.AddStatus("The administrator profile cannot be edited")
			return m, nil
		}
		m.editing = true
		m.settingsForm = newSettingsForm(m.snap.SelectedProfile())
	default:
		return m, nil
	}
	m.snap = m.ctrl.Snapshot()
	m.syncComponents()
	return m, nil
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) && !m.settingsForm.Busy() {
		m.editing = false
		m.syncComponents()
		return m, nil
	}
	submitted, cmd := m.settingsForm.Update(msg, m.keys)
	if !submitted {
		return m, cmd
	}
	return m, m.submitSettings()
}

func (m Model) selectedID() string {
	if p := m.snap.SelectedProfile(); p != nil {
		return p.ID
	}
	return ""
}

// =============================================================================
// COMPONENT SYNC
// =============================================================================

func (m *Model) syncComponents() {
	screen := m.Screen()

	m.header.SetWidth(m.width)
	m.header.SetProfile(m.snap.SelectedProfile())
	if account, ok := m.snap.Account(); ok {
		m.header.SetAccount(account.DisplayName())
	} else {
		m.header.SetAccount("")
	}

	m.grid.Width = m.width - 4
	m.grid.AddCard = screen != ScreenSwitchProfile
	m.grid.SetProfiles(m.snap.Profiles())

	m.status.SetWidth(m.width)
	m.status.SetScreen(screen.String())
	m.status.SetLoading(m.snap.Loading)
	m.status.SetHints(m.hints(screen)...)
}

func (m Model) hints(screen Screen) []components.KeyHint {
	var bindings []key.Binding
	switch screen {
	case ScreenLogin:
		bindings = []key.Binding{m.keys.Submit, m.keys.NextField, m.keys.SwitchForm}
		if m.snap.ProfileErr != nil {
			bindings = append(bindings, m.keys.Retry)
		}
	case ScreenRegister:
		bindings = []key.Binding{m.keys.Submit, m.keys.NextField, m.keys.Back}
	case ScreenProfiles:
		bindings = []key.Binding{m.keys.Submit, m.keys.NewProfile, m.keys.Logout}
		if m.snap.ProfileErr != nil {
			bindings = append(bindings, m.keys.Retry)
		}
	case ScreenCreateProfile, ScreenSettings:
		bindings = []key.Binding{m.keys.Submit, m.keys.NextField, m.keys.Back}
	case ScreenSwitchProfile:
		bindings = []key.Binding{m.keys.Submit, m.keys.Back}
	case ScreenHome:
		bindings = []key.Binding{m.keys.SwitchProfile, m.keys.Settings, m.keys.Sidebar, m.keys.Info, m.keys.Logout}
	}
	bindings = append(bindings, m.keys.Quit)

	out := make([]components.KeyHint, 0, len(bindings))
	for _, b := range bindings {
		k, d := hint(b)
		out = append(out, components.KeyHint{Key: k, Desc: d})
	}
	return out
}

// describe turns an error into a sentence for the user.
func describe(err error) string {
	var se *identity.StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "The identity service did not answer in time"
	case errors.Is(err, session.ErrDuplicateProfile):
		return "A profile with that name already exists"
	case errors.As(err, &se):
		if se.Message != "" {
			return se.Message
		}
		if se.Unauthorized() {
			return "Invalid email or password"
		}
		return fmt.Sprintf("The identity service answered HTTP %d", se.Status)
	default:
		return err.Error()
	}
}
