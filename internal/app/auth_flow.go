package app

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"dsa-tracker/internal/client"
	"dsa-tracker/internal/domain"
	"dsa-tracker/internal/log"
	"github.com/go-playground/validator/v10"
)

const (
	signupFallback = "Failed to signup. Please try again."
	loginFallback  = "Invalid credentials. Please try again."
)

var (
	namePattern      = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	passwordCharset  = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]+$`)
	passwordLetter   = regexp.MustCompile(`[A-Za-z]`)
	passwordDigit    = regexp.MustCompile(`\d`)
	passwordSpecials = regexp.MustCompile(`[@$!%*?&]`)
)

// field -> validator tag -> message
var formMessages = map[string]map[string]string{
	"name": {
		"required":   "Name is required.",
		"personname": "Name must not include numbers.",
	},
	"email": {
		"required": "Email is required.",
		"email":    "Invalid email format.",
	},
	"password": {
		"required":       "Password is required.",
		"min":            "Password must be at least 5 characters.",
		"max":            "Password must not exceed 16 characters.",
		"strongpassword": "Password must contain at least one letter, one number, and one special character.",
	},
}

// AuthAPI is the slice of the API client used by the login/signup flow.
type AuthAPI interface {
	Signup(ctx context.Context, payload client.SignupPayload) (client.TokenResponse, error)
	Login(ctx context.Context, payload client.LoginPayload) (client.TokenResponse, error)
	GetUserData(ctx context.Context) (domain.User, error)
}

type SignupForm struct {
	Name     string `json:"name" validate:"required,personname"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5,max=16,strongpassword"`
}

type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ValidationError carries one inline message per invalid form field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// AuthError is the single banner message shown when login or signup fails.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }
func (e *AuthError) Unwrap() error { return e.Err }

// AuthFlow drives the login/signup modal.
type AuthFlow struct {
	api      AuthAPI
	session  *Session
	validate *validator.Validate

	mu     sync.RWMutex
	banner string
}

func NewAuthFlow(api AuthAPI, session *Session) *AuthFlow {
	return &AuthFlow{
		api:      api,
		session:  session,
		validate: newFormValidator(),
	}
}

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		pw := fl.Field().String()
		return passwordCharset.MatchString(pw) &&
			passwordLetter.MatchString(pw) &&
			passwordDigit.MatchString(pw) &&
			passwordSpecials.MatchString(pw)
	})
	return v
}

// OpenLogin switches to the login tab and shows the modal.
func (f *AuthFlow) OpenLogin() {
	f.session.SetSelectedTab(domain.TabLogin)
	f.session.SetLoginModalOpen(true)
}

// SelectTab switches the modal between its login and signup forms.
func (f *AuthFlow) SelectTab(tab domain.AuthTab) {
	f.session.SetSelectedTab(tab)
}

// Close hides the modal without touching the session.
func (f *AuthFlow) Close() {
	f.session.SetLoginModalOpen(false)
}

// Banner returns the last authentication failure message, if any.
func (f *AuthFlow) Banner() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.banner
}

// Signup validates the form, creates the account, loads the fresh user into
// the session and closes the modal.
func (f *AuthFlow) Signup(ctx context.Context, form SignupForm) (domain.User, error) {
	if err := f.check(form); err != nil {
		return domain.User{}, err
	}
	_, err := f.api.Signup(ctx, client.SignupPayload{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		return domain.User{}, f.fail(err, signupFallback, "signup")
	}
	return f.complete(ctx, signupFallback, "signup")
}

// Login validates the form, exchanges credentials for a token, loads the user
// into the session and closes the modal.
func (f *AuthFlow) Login(ctx context.Context, form LoginForm) (domain.User, error) {
	if err := f.check(form); err != nil {
		return domain.User{}, err
	}
	_, err := f.api.Login(ctx, client.LoginPayload{
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		return domain.User{}, f.fail(err, loginFallback, "login")
	}
	return f.complete(ctx, loginFallback, "login")
}

func (f *AuthFlow) complete(ctx context.Context, fallback, action string) (domain.User, error) {
	user, err := f.api.GetUserData(ctx)
	if err != nil {
		return domain.User{}, f.fail(err, fallback, action)
	}
	if err := f.session.UpdateUser(ctx, &user); err != nil {
		return domain.User{}, f.fail(err, fallback, action)
	}
	f.session.SetLoginModalOpen(false)
	f.setBanner("")
	return user, nil
}

func (f *AuthFlow) check(form any) error {
	err := f.validate.Struct(form)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate form: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg := formMessages[fe.Field()][fe.Tag()]
		if msg == "" {
			msg = "Invalid " + fe.Field() + "."
		}
		fields[fe.Field()] = msg
	}
	return &ValidationError{Fields: fields}
}

func (f *AuthFlow) fail(err error, fallback, action string) error {
	msg := client.MessageOr(err, fallback)
	f.setBanner(msg)
	log.Log.WithError(err).Errorf("%s failed", action)
	return &AuthError{Message: msg, Err: err}
}

func (f *AuthFlow) setBanner(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banner = msg
}
