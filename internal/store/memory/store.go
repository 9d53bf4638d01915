// Package memory implementa los repositorios de dominio sobre mapas en
// memoria protegidos por un mutex. Driver para desarrollo y tests; la
// atomicidad condicional (revocar-si-activo, incrementar-intentos) se
// garantiza con el lock del store.
package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/authcore/internal/domain/repository"
)

// Store agrupa el estado de todos los repos. Un único mutex: el volumen de
// un proceso de dev/test no justifica sharding.
type Store struct {
	mu sync.Mutex

	users       map[string]*repository.User // por ID
	usersByMail map[string]string           // email -> ID

	tokens      map[string]*repository.RefreshToken // por ID
	tokenByHash map[string]string                   // hash -> ID

	otps []*repository.OtpChallenge // orden de creación

	sessions     map[string]*repository.Session // por ID
	sessionByDev map[string]string              // userID|deviceID -> sessionID
	devices      map[string]*repository.TrustedDevice
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		users:        make(map[string]*repository.User),
		usersByMail:  make(map[string]string),
		tokens:       make(map[string]*repository.RefreshToken),
		tokenByHash:  make(map[string]string),
		sessions:     make(map[string]*repository.Session),
		sessionByDev: make(map[string]string),
		devices:      make(map[string]*repository.TrustedDevice),
	}
}

func (s *Store) Users() repository.UserRepository       { return &userRepo{s} }
func (s *Store) Tokens() repository.TokenRepository     { return &tokenRepo{s} }
func (s *Store) Otps() repository.OtpRepository         { return &otpRepo{s} }
func (s *Store) Sessions() repository.SessionRepository { return &sessionRepo{s} }
func (s *Store) Devices() repository.DeviceRepository   { return &deviceRepo{s} }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

func devKey(userID, deviceID string) string { return userID + "|" + deviceID }
