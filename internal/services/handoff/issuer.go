package handoff

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jwren/castellan/internal/dependencies/clock"
	"github.com/jwren/castellan/internal/model"
)

// DefaultExpiry bounds how long a leaked handoff token stays usable.
// Minutes, not hours: the client presents it to the worker node right away.
const DefaultExpiry = 5 * time.Minute

// Claims are the signed contents of a handoff token: the identity's
// wire-safe attributes bound to the node the client may connect to. The
// worker node validates the token; the orchestrator never does.
type Claims struct {
	Username  string `json:"username"`
	EmailHash string `json:"emailHash,omitempty"`
	Node      string `json:"node"`
	jwt.RegisteredClaims
}

// Details is the handoff push sent to a client, containing everything
// needed to reconnect directly to the assigned worker node
type Details struct {
	Address   string          `json:"address"`
	Port      int             `json:"port"`
	Protocol  string          `json:"protocol"`
	Name      string          `json:"name"`
	AuthToken string          `json:"authToken"`
	SessionID model.SessionID `json:"gameId"`
}

// Config holds issuer settings
type Config struct {
	Expiry time.Duration
}

// DefaultConfig returns default handoff configuration
func DefaultConfig() Config {
	return Config{Expiry: DefaultExpiry}
}

// Issuer mints signed, time-boxed handoff capability tokens
type Issuer struct {
	secret []byte
	expiry time.Duration
	clock  clock.Clock
}

// New creates an Issuer signing with the given shared secret
func New(secret []byte, cfg Config, clock clock.Clock) *Issuer {
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Issuer{
		secret: secret,
		expiry: expiry,
		clock:  clock,
	}
}

// Issue mints a token binding the user's wire-safe attributes to the given
// node. Pure function of (identity, node, time): re-issuance has no side
// effects and an identical call at the same instant yields the same token.
func (i *Issuer) Issue(user model.UserSummary, node *model.GameNode) (string, error) {
	now := i.clock.Now()

	claims := Claims{
		Username:  string(user.Username),
		EmailHash: user.EmailHash,
		Node:      node.Identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.Username),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Handoff builds the full handoff push for a user joining the given
// session on its node
func (i *Issuer) Handoff(user model.UserSummary, node *model.GameNode, sessionID model.SessionID) (Details, error) {
	token, err := i.Issue(user, node)
	if err != nil {
		return Details{}, err
	}
	return Details{
		Address:   node.Address,
		Port:      node.Port,
		Protocol:  node.Protocol,
		Name:      node.Identity,
		AuthToken: token,
		SessionID: sessionID,
	}, nil
}
