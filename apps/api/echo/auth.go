package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/user"
)

const (
	tokenContextKey = "userToken"
	userContextKey  = "user"
	objectKey       = "object"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
// Tokens minted by older backends carry the role as `role_id` (1: admin, 2: user) or `is_admin`.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	RoleID   int    `json:"role_id,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`

	role user.Role
}

// Valid checks the time based claims and resolves the role. Unknown roles make the token invalid.
func (c *Claims) Valid() error {
	if err := c.StandardClaims.Valid(); err != nil {
		return err
	}
	if c.Subject == "" {
		return errors.New("token has no subject")
	}

	var err error
	switch {
	case c.Role != "":
		c.role, err = user.ParseRole(c.Role)
	case c.RoleID != 0:
		c.role, err = user.RoleFromID(c.RoleID)
	case c.IsAdmin:
		c.role = user.RoleAdmin
	default:
		c.role = user.RoleMember
	}
	return err
}

// UserRole is the role resolved by Valid.
func (c Claims) UserRole() user.Role {
	return c.role
}

func GetUserClaims(usr user.User, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  conf.Server.JWTAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: usr.Username,
		Email:    usr.Email,
		Role:     usr.Role.String(),
		RoleID:   usr.Role.ID(),
		IsAdmin:  usr.IsAdmin(),
		role:     usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser loads the authenticated User once per request. Deactivated accounts are refused.
func getContextUser(ctx echo.Context, svc user.Service) (user.User, error) {
	if usr, ok := ctx.Get(userContextKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context claims")
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	ctx.Set(userContextKey, usr)
	return usr, nil
}
