package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/golang/glog"

	goLMS "github.com/MrEthical07/goLMS"
	"github.com/MrEthical07/goLMS/channel"
	"github.com/MrEthical07/goLMS/metrics/export/prometheus"
	"github.com/MrEthical07/goLMS/notify"
	"github.com/MrEthical07/goLMS/request"
	"github.com/MrEthical07/goLMS/session"
)

type app struct {
	client  *goLMS.Client
	tenant  string
	out     io.Writer
	cleanup func()
}

func newApp(ctx context.Context, s settings, stdout, stderr io.Writer) (*app, error) {
	store, cleanup, err := openStore(ctx, s)
	if err != nil {
		return nil, err
	}

	client, err := goLMS.New().
		WithConfig(s.config()).
		WithTokenStore(store).
		WithNotifySink(notify.NewJSONWriterSink(stderr)).
		Build()
	if err != nil {
		cleanup()
		return nil, err
	}
	return &app{client: client, tenant: s.Tenant, out: stdout, cleanup: cleanup}, nil
}

func (a *app) close() {
	a.client.Close()
	a.cleanup()
}

func (a *app) ctx(ctx context.Context) context.Context {
	if a.tenant != "" {
		ctx = goLMS.WithTenantID(ctx, a.tenant)
	}
	return ctx
}

// restore loads the persisted session and fails when there is none.
func (a *app) restore(ctx context.Context) error {
	if err := a.client.RestoreSession(a.ctx(ctx)); err != nil {
		return describe(err)
	}
	if !a.client.Session().IsAuthenticated {
		return errors.New("not logged in; run golms login")
	}
	return nil
}

func (a *app) login(ctx context.Context, stdin *os.File, username string) error {
	if username == "" {
		fmt.Fprint(a.out, "Username: ")
		if _, err := fmt.Fscanln(stdin, &username); err != nil {
			return fmt.Errorf("read username: %w", err)
		}
	}
	fmt.Fprint(a.out, "Password: ")
	pwd, err := readPassword(int(stdin.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	if err := a.client.Login(a.ctx(ctx), username, string(pwd)); err != nil {
		return describe(err)
	}
	u := a.client.User()
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", u.Email, strings.Join(u.Roles, ", "))
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if err := a.restore(ctx); err != nil {
		return err
	}
	u := a.client.User()
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "id\t%s\n", u.ID)
	fmt.Fprintf(w, "email\t%s\n", u.Email)
	fmt.Fprintf(w, "name\t%s\n", u.Name)
	fmt.Fprintf(w, "roles\t%s\n", strings.Join(u.Roles, ", "))
	if u.TenantID != "" {
		fmt.Fprintf(w, "tenant\t%s\n", u.TenantID)
	}
	return w.Flush()
}

func (a *app) preferences(ctx context.Context) error {
	if err := a.restore(ctx); err != nil {
		return err
	}
	prefs, err := a.client.NotificationPreferences(a.ctx(ctx))
	if err != nil {
		return describe(err)
	}
	printPreferences(a.out, prefs)
	return nil
}

func (a *app) setPreference(ctx context.Context, eventType, channelName, course string, enabled bool) error {
	if err := a.restore(ctx); err != nil {
		return err
	}
	ctx = a.ctx(ctx)
	// Load first so the optimistic patch has something to apply to.
	if _, err := a.client.NotificationPreferences(ctx); err != nil {
		return describe(err)
	}
	saved, err := a.client.UpdateNotificationPreference(ctx, goLMS.NotificationPreference{
		EventType: eventType,
		Channel:   channelName,
		CourseID:  course,
		Enabled:   enabled,
	})
	if err != nil {
		return describe(err)
	}
	printPreferences(a.out, []goLMS.NotificationPreference{saved})
	return nil
}

func printPreferences(out io.Writer, prefs []goLMS.NotificationPreference) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EVENT\tCHANNEL\tCOURSE\tENABLED")
	for _, p := range prefs {
		course := p.CourseID
		if course == "" {
			course = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", p.EventType, p.Channel, course, p.Enabled)
	}
	_ = w.Flush()
}

func (a *app) notifications(ctx context.Context, unreadOnly bool) error {
	if err := a.restore(ctx); err != nil {
		return err
	}
	items, err := a.client.Notifications(a.ctx(ctx), unreadOnly)
	if err != nil {
		return describe(err)
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tREAD\tCREATED\tTITLE")
	for _, n := range items {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", n.ID, n.Type, n.Read, n.CreatedAt.Format("2006-01-02 15:04"), n.Title)
	}
	return w.Flush()
}

func (a *app) markRead(ctx context.Context, id string, all bool) error {
	if err := a.restore(ctx); err != nil {
		return err
	}
	ctx = a.ctx(ctx)
	if all {
		if err := a.client.MarkAllNotificationsRead(ctx); err != nil {
			return describe(err)
		}
		fmt.Fprintln(a.out, "All notifications marked read")
		return nil
	}
	if err := a.client.MarkNotificationRead(ctx, id); err != nil {
		return describe(err)
	}
	fmt.Fprintf(a.out, "Notification %s marked read\n", id)
	return nil
}

// tail prints push events as JSON lines until ctx ends or count events were
// seen. A count of zero never stops on its own.
func (a *app) tail(ctx context.Context, count int) error {
	if err := a.restore(ctx); err != nil {
		return err
	}

	push := a.client.Push()
	lines := make(chan string, 16)
	for _, name := range channel.KnownEvents() {
		unsub := push.SubscribeRaw(name, func(raw json.RawMessage) {
			select {
			case lines <- fmt.Sprintf(`{"event":%q,"data":%s}`, name, raw):
			default:
				glog.Warningf("golms: tail output backlog, dropping %s", name)
			}
		})
		defer unsub()
	}
	unsubState := push.OnStateChange(func(s channel.State) {
		glog.V(1).Infof("golms: push %s", s)
	})
	defer unsubState()

	revoked := make(chan struct{})
	unsubSession := a.client.OnSessionChange(func(s session.State) {
		if !s.IsAuthenticated && !s.IsLoading {
			select {
			case <-revoked:
			default:
				close(revoked)
			}
		}
	})
	defer unsubSession()

	if err := push.Connect(); err != nil {
		return err
	}

	seen := 0
	for {
		select {
		case <-revoked:
			return errors.New("session revoked by server")
		case <-ctx.Done():
			return nil
		case line := <-lines:
			fmt.Fprintln(a.out, line)
			seen++
			if count > 0 && seen >= count {
				return nil
			}
		}
	}
}

// metrics exercises the read paths once and prints the client counters in
// Prometheus text format.
func (a *app) metrics(ctx context.Context) error {
	if err := a.restore(ctx); err != nil {
		return err
	}
	ctx = a.ctx(ctx)
	if _, err := a.client.NotificationPreferences(ctx); err != nil {
		return describe(err)
	}
	if _, err := a.client.UnreadCount(ctx); err != nil {
		return describe(err)
	}
	_, err := io.WriteString(a.out, prometheus.NewPrometheusExporter(a.client).Render())
	return err
}

// describe turns a request failure into a one-line message with field errors.
func describe(err error) error {
	rerr, ok := request.AsError(err)
	if !ok {
		return err
	}
	msg := rerr.UserMessage()
	for _, fe := range rerr.FieldErrors {
		msg += fmt.Sprintf("\n  %s: %s", fe.Field, fe.Message)
	}
	return errors.New(msg)
}
