package goLMS

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/MrEthical07/goLMS/jwt"
	"github.com/MrEthical07/goLMS/request"
	"github.com/MrEthical07/goLMS/session"
	"github.com/go-playground/validator/v10"
	"github.com/golang/glog"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput checks v against its struct tags and reports failures as a
// request.Error of KindValidation with one FieldError per field.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return request.NewValidationError("", nil)
	}
	fields := make([]request.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, request.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return request.NewValidationError("", fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return "Must be at most " + fe.Param() + " characters."
	case "min":
		return "Must be at least " + fe.Param() + " characters."
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	default:
		return "Invalid value."
	}
}

// Login exchanges credentials for an access token, persists it, then loads
// the current user. The session is authenticated only after the user fetch
// succeeds. Input problems are returned as field errors without any network
// call; backend failures are returned as *request.Error.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if err := c.ready(); err != nil {
		return err
	}

	creds := Credentials{Username: strings.TrimSpace(username), Password: password}
	if err := validateInput(creds); err != nil {
		c.metricInc(MetricLoginFailure)
		return err
	}

	var tok tokenResponse
	err := c.api.Post(ctx, "/auth/token", tokenRequest{
		Username:  creds.Username,
		Password:  creds.Password,
		GrantType: "password",
	}, &tok)
	if err != nil {
		c.metricInc(MetricLoginFailure)
		return err
	}
	if tok.AccessToken == "" {
		c.metricInc(MetricLoginFailure)
		glog.Warningf("goLMS: token response without access_token")
		return &request.Error{
			Message:    request.GenericMessage,
			HTTPStatus: 200,
			Kind:       request.KindMalformed,
			Err:        ErrMalformedResponse,
		}
	}

	gen, err := c.sessions.SetToken(ctx, tok.AccessToken)
	if err != nil {
		c.metricInc(MetricLoginFailure)
		return err
	}

	user, err := c.fetchUser(ctx)
	if err != nil {
		c.metricInc(MetricLoginFailure)
		c.dropToken(ctx)
		return err
	}
	if err := c.sessions.SetUser(gen, user); err != nil {
		c.metricInc(MetricLoginFailure)
		return err
	}
	c.sessions.FinishLoading()

	c.metricInc(MetricLoginSuccess)
	return nil
}

// Logout clears the persisted token and the in-memory session synchronously.
// It closes the push channel and empties the cache. No network call is made.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	err := c.sessions.Clear(ctx)
	c.push.Close()
	c.cache.Clear()
	c.sessions.FinishLoading()
	c.metricInc(MetricLogout)
	return err
}

// RestoreSession rebuilds the session from the persisted token. The session
// reports IsLoading until it returns. A persisted JWT that is already expired
// is discarded without a network call; any failure to load the user leaves
// the session logged out with the token cleared.
func (c *Client) RestoreSession(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}

	c.sessions.BeginLoading()
	defer c.sessions.FinishLoading()

	token, gen, err := c.sessions.Load(ctx)
	if err != nil {
		c.metricInc(MetricSessionRestoreFailure)
		return err
	}
	if token == "" {
		return nil
	}

	if c.config.Session.DiscardExpired && c.tokenExpired(token) {
		c.metricInc(MetricSessionExpiredDiscarded)
		c.dropToken(ctx)
		return nil
	}

	user, err := c.fetchUser(ctx)
	if err != nil {
		c.metricInc(MetricSessionRestoreFailure)
		c.dropToken(ctx)
		return err
	}
	if err := c.sessions.SetUser(gen, user); err != nil {
		if errors.Is(err, session.ErrStaleGeneration) {
			// A login or logout won the race; its outcome stands.
			return nil
		}
		return err
	}

	c.metricInc(MetricSessionRestored)
	return nil
}

// User returns a copy of the signed-in user, or nil.
func (c *Client) User() *session.User {
	if c == nil {
		return nil
	}
	return c.sessions.State().User
}

func (c *Client) fetchUser(ctx context.Context) (session.User, error) {
	var u session.User
	if err := c.api.Get(ctx, "/users/me", &u); err != nil {
		return session.User{}, err
	}
	if u.ID == "" {
		glog.Warningf("goLMS: /users/me returned a user without id")
		return session.User{}, &request.Error{
			Message:    request.GenericMessage,
			HTTPStatus: 200,
			Kind:       request.KindMalformed,
			Err:        ErrMalformedResponse,
		}
	}
	return u, nil
}

func (c *Client) tokenExpired(token string) bool {
	claims, err := jwt.Inspect(token)
	if err != nil {
		if !errors.Is(err, jwt.ErrNotJWT) {
			glog.V(1).Infof("goLMS: persisted token claims unreadable: %v", err)
		}
		return false
	}
	return claims.Expired(time.Now(), c.config.Session.ExpiryLeeway)
}

func (c *Client) dropToken(ctx context.Context) {
	if err := c.sessions.Clear(context.WithoutCancel(ctx)); err != nil {
		glog.Warningf("goLMS: clearing persisted token: %v", err)
	}
}

// ensureAuthenticated guards operations that need a signed-in user.
func (c *Client) ensureAuthenticated() error {
	if err := c.ready(); err != nil {
		return err
	}
	if !c.sessions.State().IsAuthenticated {
		return ErrNotAuthenticated
	}
	return nil
}
