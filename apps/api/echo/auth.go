package echoapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
	identitysvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/identity"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
// Subject is empty for people who can sign in but have not completed onboarding yet.
type Claims struct {
	jwt.StandardClaims
	Email   string `json:"email"`
	Role    string `json:"role,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"`
}

type authConfig struct {
	jwtConf     middleware.JWTConfig
	issuer      string
	expiration  time.Duration
	adminEmails map[string]bool
}

func newAuthConfig(conf *core.Config) *authConfig {
	admins := make(map[string]bool, len(conf.AdminEmails))
	for _, email := range conf.AdminEmails {
		admins[core.CleanString(email, true /* lower */)] = true
	}
	exp := conf.Server.JWTExpirationDelta
	if exp <= 0 {
		exp = time.Hour
	}
	return &authConfig{
		jwtConf: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
		issuer:      conf.AppName,
		expiration:  exp,
		adminEmails: admins,
	}
}

func (ac *authConfig) middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(ac.jwtConf)
}

// optionalMiddleware parses the token when one is sent and lets anonymous requests through.
func (ac *authConfig) optionalMiddleware() echo.MiddlewareFunc {
	conf := ac.jwtConf
	conf.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}
	return middleware.JWTWithConfig(conf)
}

// NewClaims returns the claims of `usr`. A zero `usr` gives claims for `email` only.
func (ac *authConfig) NewClaims(usr user.User, email string) *Claims {
	now := time.Now()
	email = core.CleanString(core.FirstNonEmpty(usr.Email, email), true /* lower */)
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ac.issuer,
			Subject:   usr.ID,
			ExpiresAt: now.Add(ac.expiration).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:   email,
		Role:    string(usr.Role),
		IsAdmin: usr.IsAdmin() || ac.adminEmails[email],
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (ac *authConfig) GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(ac.jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(ac.jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	if claims.Subject == "" {
		return user.User{}, errHttpNotFound
	}
	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

type authApi struct {
	auth    Authenticator
	userSvc *user.Service
	ac      *authConfig
}

type (
	LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	LoginResponse struct {
		Token string     `json:"token"`
		User  *user.User `json:"user,omitempty"`
	}
)

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth Authenticator, userSvc *user.Service, ac *authConfig) {
	api := authApi{auth: auth, userSvc: userSvc, ac: ac}
	g.POST("/auth/login", api.login)
	g.POST("/auth/refresh", api.refresh, jwt)
}

func (api *authApi) login(ctx echo.Context) error {
	data := new(LoginRequest)
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding data")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if data.Email == "" || data.Password == "" {
		return errAuthenticationFailed
	}

	rctx := ctx.Request().Context()
	if _, err := api.auth.Authenticate(rctx, data.Email, data.Password); err != nil {
		if errors.Is(err, identitysvc.ErrInvalidCredentials) {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating")
	}

	res := LoginResponse{}
	usr, err := api.userSvc.GetByEmail(rctx, data.Email)
	switch {
	case err == nil:
		if !usr.IsActive {
			return errAccountDeactivated
		}
		res.User = &usr
	case errors.Is(err, user.ErrNotFound):
		// onboarding not complete yet
	default:
		return errors.Wrap(err, "finding user by email")
	}

	res.Token, err = api.ac.GenerateToken(api.ac.NewClaims(usr, data.Email))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *authApi) refresh(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var usr user.User
	if claims.Subject != "" {
		if usr, err = getContextUser(ctx, api.userSvc); err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return errUnauthorized
			}
			return err
		}
		if !usr.IsActive {
			return errAccountDeactivated
		}
	} else if u, err := api.userSvc.GetByEmail(ctx.Request().Context(), claims.Email); err == nil {
		usr = u // onboarding completed since the last token
	}

	token, err := api.ac.GenerateToken(api.ac.NewClaims(usr, claims.Email))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func hasRole(claims Claims, roles ...user.Role) bool {
	for _, role := range roles {
		if strings.EqualFold(claims.Role, string(role)) {
			return true
		}
	}
	return false
}
