package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"html/template"
	"math/big"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var activationMailTemplate = template.Must(template.New("activation").Parse(`
<div style="font-family: sans-serif">
	<h2>Activate your account</h2>
	<p>Hello {{.Name}},</p>
	<p>Your activation code is:</p>
	<p style="font-size: 28px; letter-spacing: 4px"><strong>{{.Code}}</strong></p>
	<p>The code expires in {{.TTL}} minutes. If you did not create an account you can ignore this email.</p>
</div>
`))

// Activation is what CreateActivation hands back: the opaque token goes to
// the HTTP client, the code goes out by mail only.
type Activation struct {
	Token string
	Code  string
}

// ActivationService gates account creation behind a mailed 4 digit code.
// Nothing is persisted until the code comes back: the pending registration
// rides inside the signed activation token.
type ActivationService struct {
	repo   RepositoryManager
	tokens TokenService
	mailer Mailer
	logger Logger
	// codeSource is swapped in tests for a deterministic generator
	codeSource func() (string, error)
}

// NewActivationService creates an activation service. A nil mailer logs
// codes instead of delivering them, which is only good for development.
func NewActivationService(repo RepositoryManager, tokens TokenService, mailer Mailer) *ActivationService {
	return &ActivationService{
		repo:       repo,
		tokens:     tokens,
		mailer:     mailer,
		logger:     defLogger{},
		codeSource: randomActivationCode,
	}
}

// WithLogger overrides the default logger
func (s *ActivationService) WithLogger(logger Logger) *ActivationService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithCodeSource overrides how activation codes are generated.
func (s *ActivationService) WithCodeSource(source func() (string, error)) *ActivationService {
	if source != nil {
		s.codeSource = source
	}
	return s
}

// CreateActivation issues an activation token for the pending registration
// and mails the matching code. The raw code never travels with the token
// back to the caller's HTTP response.
func (s *ActivationService) CreateActivation(ctx context.Context, pending PendingRegistration) (*Activation, error) {
	code, err := s.codeSource()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate activation code")
	}

	token, err := s.tokens.SignActivationClaims(&ActivationClaims{
		User: pending,
		Code: code,
	})
	if err != nil {
		return nil, err
	}

	if err := s.deliverCode(ctx, pending, code); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to send activation email")
	}

	return &Activation{Token: token, Code: code}, nil
}

func (s *ActivationService) deliverCode(ctx context.Context, pending PendingRegistration, code string) error {
	if s.mailer == nil {
		s.logger.Warn("no mailer configured, activation code for %s: %s", pending.Email, code)
		return nil
	}

	var body bytes.Buffer
	err := activationMailTemplate.Execute(&body, map[string]any{
		"Name": pending.Name,
		"Code": code,
		"TTL":  5,
	})
	if err != nil {
		return err
	}

	return s.mailer.Send(ctx, MailMessage{
		To:      pending.Email,
		Subject: "Activate your account",
		HTML:    body.String(),
	})
}

// Activate verifies the token and code pair and creates the user. The email
// uniqueness check runs again here since anyone can register the same email
// twice before either activates.
func (s *ActivationService) Activate(ctx context.Context, token, code string) (*User, error) {
	claims, err := s.tokens.ValidateActivation(token)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(claims.Code), []byte(code)) != 1 {
		return nil, NewInvalidActivationCodeError()
	}

	pending := claims.User

	passwordHash, err := HashPassword(pending.Password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	var user *User
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.repo.Users().GetByIdentifierTx(ctx, tx, pending.Email); err == nil {
			return NewDuplicateEmailError(pending.Email)
		} else if !repository.IsRecordNotFound(err) {
			return err
		}

		record := &User{
			ID:           deterministicUserID(pending.Email),
			Name:         pending.Name,
			Email:        pending.Email,
			PasswordHash: passwordHash,
			Role:         RoleUser,
			IsVerified:   true,
		}

		created, err := s.repo.Users().CreateTx(ctx, tx, record)
		if err != nil {
			return err
		}

		user = created
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("activated account for %s", user.Email)

	return user, nil
}

// deterministicUserID derives the uuid from the email so retried
// registrations converge on the same identity.
func deterministicUserID(email string) uuid.UUID {
	id, err := hashid.NewUUID(email)
	if err != nil {
		return uuid.New()
	}
	return id
}

func randomActivationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}
