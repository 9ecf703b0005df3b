package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"dsa-tracker/internal/app"
	"dsa-tracker/internal/client"
	"dsa-tracker/internal/config"
	"dsa-tracker/internal/domain"
	"dsa-tracker/internal/infra/file"
	infraredis "dsa-tracker/internal/infra/redis"
	"dsa-tracker/internal/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type clientOptions struct {
	configPath *string
	apiURL     *string
	stateDir   *string
}

// clientApp owns the session for one CLI invocation and the components that share it.
type clientApp struct {
	session *app.Session
	api     *client.Client
	auth    *app.AuthFlow
	topics  *app.TopicList
	toggle  *app.ToggleHandler
	closers []func() error
}

func newClientApp(ctx context.Context, opts *clientOptions) (*clientApp, error) {
	cfg, err := config.Load(*opts.configPath)
	if err != nil {
		return nil, err
	}
	if *opts.apiURL != "" {
		cfg.Client.APIURL = *opts.apiURL
	}
	if *opts.stateDir != "" {
		cfg.Client.StateDir = *opts.stateDir
	}
	log.InitLogger("tracker", cfg.Log.Level)

	ca := &clientApp{}
	var store app.Storage
	switch cfg.Client.Storage {
	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("client storage is redis but redis.addr is not set")
		}
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ca.closers = append(ca.closers, rc.Close)
		store = infraredis.NewKVStore(rc, cfg.Redis.Prefix+"session:")
	case "file":
		store = file.NewKVStore(filepath.Join(cfg.Client.StateDir, "session.json"))
	default:
		return nil, fmt.Errorf("unknown client storage %q", cfg.Client.Storage)
	}

	ca.api = client.New(cfg.Client.APIURL, config.TTLDuration(cfg.Client.Timeout, 10*time.Second), store)
	ca.session = app.NewSession(store)
	ca.auth = app.NewAuthFlow(ca.api, ca.session)
	ca.topics = app.NewTopicList(ca.api)
	ca.toggle = app.NewToggleHandler(ca.api, ca.session,
		config.TTLDuration(cfg.Reconcile.Delay, config.DefaultReconcileDelay), cfg.Reconcile.Attempts)

	// a failed restore leaves the session logged out; commands still run
	_ = ca.session.Hydrate(ctx, ca.api)
	return ca, nil
}

func (ca *clientApp) Close() {
	for _, c := range ca.closers {
		_ = c()
	}
}

func newClientCmds(opts *clientOptions) []*cobra.Command {
	return []*cobra.Command{
		newSignupCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newTopicsCmd(opts),
		newToggleCmd(opts),
	}
}

// withClient builds the client app for the command and tears it down afterwards.
func withClient(opts *clientOptions, run func(cmd *cobra.Command, ca *clientApp, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ca, err := newClientApp(cmd.Context(), opts)
		if err != nil {
			return err
		}
		defer ca.Close()
		return run(cmd, ca, args)
	}
}

func newSignupCmd(opts *clientOptions) *cobra.Command {
	var form app.SignupForm
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		RunE: withClient(opts, func(cmd *cobra.Command, ca *clientApp, _ []string) error {
			ca.session.SetSelectedTab(domain.TabSignup)
			ca.session.SetLoginModalOpen(true)
			if form.Password == "" {
				form.Password = readLine(cmd.InOrStdin())
			}
			user, err := ca.auth.Signup(cmd.Context(), form)
			if err != nil {
				return reportAuthError(cmd.ErrOrStderr(), ca.session, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s!\n", user.Name)
			return nil
		}),
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "display name")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "password (read from stdin when omitted)")
	return cmd
}

func newLoginCmd(opts *clientOptions) *cobra.Command {
	var form app.LoginForm
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		RunE: withClient(opts, func(cmd *cobra.Command, ca *clientApp, _ []string) error {
			ca.auth.OpenLogin()
			if form.Password == "" {
				form.Password = readLine(cmd.InOrStdin())
			}
			user, err := ca.auth.Login(cmd.Context(), form)
			if err != nil {
				return reportAuthError(cmd.ErrOrStderr(), ca.session, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome back, %s!\n", user.Name)
			return nil
		}),
	}
	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.Password, "password", "", "password (read from stdin when omitted)")
	return cmd
}

func newLogoutCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: withClient(opts, func(cmd *cobra.Command, ca *clientApp, _ []string) error {
			if err := ca.session.Logout(cmd.Context()); err != nil {
				return err
			}
			return app.RenderHeader(cmd.OutOrStdout(), nil)
		}),
	}
}

func newWhoamiCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: withClient(opts, func(cmd *cobra.Command, ca *clientApp, _ []string) error {
			return app.RenderHeader(cmd.OutOrStdout(), ca.session.User())
		}),
	}
}

func newTopicsCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List the catalog with your progress",
		RunE: withClient(opts, func(cmd *cobra.Command, ca *clientApp, _ []string) error {
			user := ca.session.User()
			out := cmd.OutOrStdout()
			if err := app.RenderHeader(out, user); err != nil {
				return err
			}
			ca.topics.Load(cmd.Context())
			return ca.topics.Render(out, user)
		}),
	}
}

func newToggleCmd(opts *clientOptions) *cobra.Command {
	var done, undone bool
	cmd := &cobra.Command{
		Use:   "toggle <topic-id> <subtopic-id>",
		Short: "Flip (or set) the completion of a subtopic",
		Args:  cobra.ExactArgs(2),
		RunE: withClient(opts, func(cmd *cobra.Command, ca *clientApp, args []string) error {
			user := ca.session.User()
			if user == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Log In to track your progress!")
				return domain.ErrNotAuthenticated
			}
			topicID := args[0]
			subtopicID, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("subtopic id must be a number: %w", err)
			}

			ca.topics.Load(cmd.Context())
			_, sub, err := ca.topics.Find(topicID, subtopicID)
			if err != nil {
				return err
			}

			target := !app.IsChecked(user, topicID, subtopicID)
			switch {
			case done && undone:
				return errors.New("--done and --undone are mutually exclusive")
			case done:
				target = true
			case undone:
				target = false
			}

			updates, cancel := ca.session.Subscribe()
			watched := make(chan struct{})
			go func() {
				defer close(watched)
				showLoading(cmd.ErrOrStderr(), updates)
			}()
			err = ca.toggle.Toggle(cmd.Context(), topicID, subtopicID, target)
			cancel()
			<-watched
			if err != nil {
				return err
			}
			box := "[ ]"
			if app.IsChecked(ca.session.User(), topicID, subtopicID) {
				box = "[x]"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s #%d %s (%s)\n", box, sub.ID, sub.Title, sub.Difficulty)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&done, "done", false, "mark as completed")
	cmd.Flags().BoolVar(&undone, "undone", false, "mark as not completed")
	return cmd
}

// showLoading prints an indicator each time the session enters the loading state.
// It returns once updates is closed.
func showLoading(w io.Writer, updates <-chan app.Snapshot) {
	loading := false
	for snap := range updates {
		if snap.IsLoading && !loading {
			fmt.Fprintln(w, "Loading...")
		}
		loading = snap.IsLoading
	}
}

// reportAuthError prints inline field messages or the banner and returns err.
func reportAuthError(w io.Writer, session *app.Session, err error) error {
	if session.LoginModalOpen() {
		defer fmt.Fprintf(w, "%s form still open: fix the above and run the command again\n", session.SelectedTab())
	}
	var verr *app.ValidationError
	if errors.As(err, &verr) {
		fields := make([]string, 0, len(verr.Fields))
		for f := range verr.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(w, "  %s: %s\n", f, verr.Fields[f])
		}
		return err
	}
	var authErr *app.AuthError
	if errors.As(err, &authErr) {
		fmt.Fprintln(w, authErr.Message)
	}
	return err
}

func readLine(r io.Reader) string {
	line, _ := bufio.NewReader(r).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
