package token

import (
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// Kind distinguishes access from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the identity envelope carried by both tokens.
type Claims struct {
	UserID    string
	Role      string
	Kind      Kind
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Pair is a freshly issued access/refresh pair.
type Pair struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// Manager issues and verifies token pairs.
type Manager interface {
	IssuePair(userID, role string, now time.Time) (Pair, error)
	VerifyAccess(token string, now time.Time) (Claims, error)
	VerifyRefresh(token string, now time.Time) (Claims, error)
	PublicKeyHex() string
}

type pasetoManager struct {
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clockSkew  time.Duration

	secret paseto.V4AsymmetricSecretKey
	public paseto.V4AsymmetricPublicKey

	ephemeral bool
}

// NewPasetoManager builds a Manager over PASETO v4.public.
func NewPasetoManager(cfg Config) (Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.Issuer == "" {
		return nil, ErrConfig
	}

	var (
		secret    paseto.V4AsymmetricSecretKey
		ephemeral bool
	)
	if cfg.SecretKeyHex == "" {
		secret = paseto.NewV4AsymmetricSecretKey()
		ephemeral = true
	} else {
		s, err := paseto.NewV4AsymmetricSecretKeyFromHex(cfg.SecretKeyHex)
		if err != nil {
			return nil, ErrConfig
		}
		secret = s
	}

	return &pasetoManager{
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		clockSkew:  cfg.ClockSkew,
		secret:     secret,
		public:     secret.Public(),
		ephemeral:  ephemeral,
	}, nil
}

// IsEphemeral reports whether m signs with a key generated at startup.
func IsEphemeral(m Manager) bool {
	pm, ok := m.(*pasetoManager)
	return ok && pm.ephemeral
}

func (m *pasetoManager) PublicKeyHex() string {
	return m.public.ExportHex()
}

func (m *pasetoManager) IssuePair(userID, role string, now time.Time) (Pair, error) {
	if userID == "" {
		return Pair{}, ErrInvalidToken
	}

	accessExp := now.Add(m.accessTTL)
	refreshExp := now.Add(m.refreshTTL)

	return Pair{
		AccessToken:  m.sign(userID, role, KindAccess, now, accessExp),
		AccessExp:    accessExp,
		RefreshToken: m.sign(userID, role, KindRefresh, now, refreshExp),
		RefreshExp:   refreshExp,
	}, nil
}

func (m *pasetoManager) sign(userID, role string, kind Kind, now, exp time.Time) string {
	tok := paseto.NewToken()
	tok.SetIssuer(m.issuer)
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)

	tok.SetString("uid", userID)
	tok.SetString("role", role)
	tok.SetString("typ", string(kind))

	return tok.V4Sign(m.secret, nil)
}

func (m *pasetoManager) VerifyAccess(token string, now time.Time) (Claims, error) {
	return m.verify(token, KindAccess, now)
}

func (m *pasetoManager) VerifyRefresh(token string, now time.Time) (Claims, error) {
	return m.verify(token, KindRefresh, now)
}

func (m *pasetoManager) verify(token string, want Kind, now time.Time) (Claims, error) {
	if token == "" || len(token) > 4096 {
		return Claims{}, ErrInvalidToken
	}

	// Fresh parser per call so rules never accumulate. Expiry is judged against now, not the
	// wall clock, so ValidAt replaces the parser's default NotExpired rule.
	p := paseto.NewParserWithoutExpiryCheck()
	p.AddRule(paseto.IssuedBy(m.issuer))
	p.AddRule(paseto.ValidAt(now.Add(m.clockSkew)))

	parsed, err := p.ParseV4Public(m.public, token, nil)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	typ, err := parsed.GetString("typ")
	if err != nil || Kind(typ) != want {
		return Claims{}, ErrInvalidToken
	}
	uid, err := parsed.GetString("uid")
	if err != nil || uid == "" {
		return Claims{}, ErrInvalidToken
	}
	role, _ := parsed.GetString("role")

	iss, _ := parsed.GetIssuer()
	iat, _ := parsed.GetIssuedAt()
	exp, _ := parsed.GetExpiration()

	return Claims{
		UserID:    uid,
		Role:      role,
		Kind:      want,
		Issuer:    iss,
		IssuedAt:  iat,
		ExpiresAt: exp,
	}, nil
}
