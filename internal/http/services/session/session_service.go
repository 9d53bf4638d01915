// Package session implementa el ciclo de vida de sesiones y dispositivos de
// confianza: abrir sesión (con emisión de tokens), listar, revocar en
// cascada y gestionar el trust por dispositivo.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authcore/internal/audit"
	"github.com/dropDatabas3/authcore/internal/cache"
	"github.com/dropDatabas3/authcore/internal/domain/repository"
	authdto "github.com/dropDatabas3/authcore/internal/http/dto/auth"
	dto "github.com/dropDatabas3/authcore/internal/http/dto/session"
	jwtx "github.com/dropDatabas3/authcore/internal/jwt"
	"github.com/dropDatabas3/authcore/internal/metrics"
	"github.com/dropDatabas3/authcore/internal/observability/logger"
	tokens "github.com/dropDatabas3/authcore/internal/security/token"
	"github.com/dropDatabas3/authcore/internal/store"
)

// Errores de sesión
var (
	ErrSessionNotFound = fmt.Errorf("session not found")
	ErrNotOwner        = fmt.Errorf("session does not belong to user")
	ErrIssueFailed     = fmt.Errorf("failed to issue tokens")
)

// trustCacheTTL acota cuánto puede sobrevivir un trust revocado en el cache.
const trustCacheTTL = 5 * time.Minute

// OpenInput contiene los datos para abrir (o reactivar) una sesión.
type OpenInput struct {
	User      *repository.User
	Device    authdto.DeviceInfo
	IPAddress string
	UserAgent string
}

// Service define las operaciones de sesiones y dispositivos.
type Service interface {
	// Open abre la sesión del par (usuario, dispositivo) y emite el par de
	// tokens. Reutiliza la fila de sesión si el dispositivo ya tuvo una.
	Open(ctx context.Context, in OpenInput) (*authdto.LoginResult, error)

	// List retorna las sesiones activas del usuario. currentDeviceID marca
	// cuál es la sesión del request.
	List(ctx context.Context, userID, currentDeviceID string) (*dto.ListResult, error)

	// Revoke cierra una sesión puntual y revoca su refresh token.
	Revoke(ctx context.Context, userID, sessionID string) error

	// RevokeAll cierra todas las sesiones del usuario.
	RevokeAll(ctx context.Context, userID, reason string) (int, error)

	// RevokeOthers cierra todas las sesiones del usuario salvo la del
	// dispositivo indicado.
	RevokeOthers(ctx context.Context, userID, deviceID string) (int, error)

	// Trust registra el dispositivo como de confianza.
	Trust(ctx context.Context, userID, deviceID, label string) (*dto.DeviceInfo, error)

	// Untrust retira la confianza de un dispositivo. No cierra sesiones.
	Untrust(ctx context.Context, userID, deviceID string) error

	// ListDevices retorna los dispositivos confiados del usuario.
	ListDevices(ctx context.Context, userID string) (*dto.DeviceListResult, error)

	// IsTrusted indica si el dispositivo es de confianza. Cachea el lookup.
	IsTrusted(ctx context.Context, userID, deviceID string) bool
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Store      store.Store
	Codec      *jwtx.Codec
	Cache      cache.Client
	RefreshTTL time.Duration
	SessionTTL time.Duration
}

type service struct {
	deps Deps
}

// NewService crea el servicio de sesiones.
func NewService(deps Deps) Service {
	return &service{deps: deps}
}

func (s *service) Open(ctx context.Context, in OpenInput) (*authdto.LoginResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session"),
		logger.Op("Open"),
		logger.UserID(in.User.ID),
	)

	deviceID := in.Device.DeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	now := time.Now().UTC()
	trusted := s.IsTrusted(ctx, in.User.ID, deviceID)

	sess, err := s.deps.Store.Sessions().Upsert(ctx, repository.UpsertSessionInput{
		UserID:    in.User.ID,
		DeviceID:  deviceID,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Platform:  in.Device.Platform,
		IsTrusted: trusted,
		ExpiresAt: now.Add(s.deps.SessionTTL),
	})
	if err != nil {
		log.Error("session upsert failed", logger.Err(err))
		return nil, ErrIssueFailed
	}

	rawRefresh, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return nil, ErrIssueFailed
	}
	tokenID, err := s.deps.Store.Tokens().Create(ctx, repository.CreateRefreshTokenInput{
		UserID:    in.User.ID,
		SessionID: sess.ID,
		TokenHash: tokens.SHA256Hex(rawRefresh),
		ExpiresAt: now.Add(s.deps.RefreshTTL),
	})
	if err != nil {
		log.Error("refresh token create failed", logger.Err(err))
		return nil, ErrIssueFailed
	}
	if err := s.deps.Store.Sessions().LinkRefreshToken(ctx, sess.ID, tokenID); err != nil {
		log.Error("session link failed", logger.Err(err))
		return nil, ErrIssueFailed
	}

	access, _, err := s.deps.Codec.Issue(in.User.ID, in.User.Email, in.User.Role, jwtx.TokenAccess)
	if err != nil {
		log.Error("access token issue failed", logger.Err(err))
		return nil, ErrIssueFailed
	}

	// best-effort
	_ = s.deps.Store.Users().TouchLastLogin(ctx, in.User.ID, now)
	if trusted {
		_ = s.deps.Store.Devices().TouchLastUsed(ctx, in.User.ID, deviceID, now)
	}

	log.Info("session opened",
		logger.SessionID(sess.ID),
		logger.DeviceID(deviceID),
		logger.Bool("trusted", trusted),
	)

	return &authdto.LoginResult{
		AccessToken:  access,
		RefreshToken: rawRefresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.deps.Codec.ExpirySeconds(jwtx.TokenAccess),
		SessionID:    sess.ID,
		DeviceID:     deviceID,
		UserID:       in.User.ID,
	}, nil
}

func (s *service) List(ctx context.Context, userID, currentDeviceID string) (*dto.ListResult, error) {
	sessions, err := s.deps.Store.Sessions().ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &dto.ListResult{Sessions: make([]dto.SessionInfo, 0, len(sessions))}
	for _, sess := range sessions {
		info := dto.SessionInfo{
			SessionID:    sess.ID,
			DeviceID:     sess.DeviceID,
			IsTrusted:    sess.IsTrusted,
			IsCurrent:    currentDeviceID != "" && sess.DeviceID == currentDeviceID,
			CreatedAt:    sess.CreatedAt,
			LastActivity: sess.LastActivity,
		}
		if sess.Platform != nil {
			info.Platform = *sess.Platform
		}
		if sess.IPAddress != nil {
			info.IPAddress = *sess.IPAddress
		}
		if sess.UserAgent != nil {
			info.UserAgent = *sess.UserAgent
		}
		out.Sessions = append(out.Sessions, info)
	}
	return out, nil
}

func (s *service) Revoke(ctx context.Context, userID, sessionID string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("session"),
		logger.Op("Revoke"),
		logger.SessionID(sessionID),
	)

	sess, err := s.deps.Store.Sessions().Get(ctx, sessionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrSessionNotFound
		}
		return err
	}
	if sess.UserID != userID {
		return ErrNotOwner
	}

	if err := s.deps.Store.Sessions().Revoke(ctx, sessionID, "user_revoked"); err != nil {
		return err
	}
	// cascada: el refresh token vinculado deja de rotar
	if sess.RefreshTokenID != nil {
		if err := s.deps.Store.Tokens().Revoke(ctx, *sess.RefreshTokenID, repository.RevokeReasonSession); err != nil && !repository.IsNotFound(err) {
			log.Warn("linked token revoke failed", logger.Err(err))
		}
	}

	metrics.SessionsRevokedTotal.WithLabelValues("user_revoked").Inc()
	log.Info("session revoked")
	audit.Log(ctx, audit.EventSessionRevoked, logger.UserID(userID), logger.SessionID(sessionID))
	return nil
}

func (s *service) RevokeAll(ctx context.Context, userID, reason string) (int, error) {
	n, err := s.deps.Store.Sessions().RevokeAllByUser(ctx, userID, reason)
	if err != nil {
		return 0, err
	}
	if _, err := s.deps.Store.Tokens().RevokeAllByUser(ctx, userID, repository.RevokeReasonSession); err != nil {
		return n, err
	}
	if n > 0 {
		metrics.SessionsRevokedTotal.WithLabelValues(reason).Add(float64(n))
	}
	return n, nil
}

func (s *service) RevokeOthers(ctx context.Context, userID, deviceID string) (int, error) {
	n, err := s.deps.Store.Sessions().RevokeAllByUserExceptDevice(ctx, userID, deviceID, "user_revoked")
	if err != nil {
		return 0, err
	}

	// la sesión que sobrevive conserva su refresh token
	var keepSession string
	if sess, err := s.deps.Store.Sessions().ListActiveByUser(ctx, userID); err == nil {
		for _, x := range sess {
			if x.DeviceID == deviceID {
				keepSession = x.ID
				break
			}
		}
	}
	if _, err := s.deps.Store.Tokens().RevokeAllByUserExceptSession(ctx, userID, keepSession, repository.RevokeReasonSession); err != nil {
		return n, err
	}
	if n > 0 {
		metrics.SessionsRevokedTotal.WithLabelValues("user_revoked").Add(float64(n))
	}
	return n, nil
}

func (s *service) Trust(ctx context.Context, userID, deviceID, label string) (*dto.DeviceInfo, error) {
	dev, err := s.deps.Store.Devices().Upsert(ctx, repository.UpsertTrustedDeviceInput{
		UserID:   userID,
		DeviceID: deviceID,
		Label:    label,
	})
	if err != nil {
		return nil, err
	}
	s.invalidateTrust(ctx, userID, deviceID)

	logger.From(ctx).Info("device trusted",
		logger.Component("session"),
		logger.UserID(userID),
		logger.DeviceID(deviceID),
	)
	audit.Log(ctx, audit.EventDeviceTrusted, logger.UserID(userID), logger.DeviceID(deviceID))
	return deviceToDTO(dev), nil
}

func (s *service) Untrust(ctx context.Context, userID, deviceID string) error {
	if err := s.deps.Store.Devices().Revoke(ctx, userID, deviceID); err != nil {
		return err
	}
	s.invalidateTrust(ctx, userID, deviceID)
	return nil
}

func (s *service) ListDevices(ctx context.Context, userID string) (*dto.DeviceListResult, error) {
	devs, err := s.deps.Store.Devices().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &dto.DeviceListResult{Devices: make([]dto.DeviceInfo, 0, len(devs))}
	for i := range devs {
		out.Devices = append(out.Devices, *deviceToDTO(&devs[i]))
	}
	return out, nil
}

// IsTrusted consulta el cache antes que el store. El trust es un hint (salta
// pasos de verificación), así que una lectura levemente vieja es tolerable.
func (s *service) IsTrusted(ctx context.Context, userID, deviceID string) bool {
	if deviceID == "" {
		return false
	}
	key := trustKey(userID, deviceID)
	if s.deps.Cache != nil {
		if v, err := s.deps.Cache.Get(ctx, key); err == nil {
			return v == "1"
		}
	}

	trusted := false
	if dev, err := s.deps.Store.Devices().Get(ctx, userID, deviceID); err == nil {
		trusted = dev.Trusted()
	}

	if s.deps.Cache != nil {
		v := "0"
		if trusted {
			v = "1"
		}
		_ = s.deps.Cache.Set(ctx, key, v, trustCacheTTL)
	}
	return trusted
}

func (s *service) invalidateTrust(ctx context.Context, userID, deviceID string) {
	if s.deps.Cache != nil {
		_ = s.deps.Cache.Delete(ctx, trustKey(userID, deviceID))
	}
}

func trustKey(userID, deviceID string) string {
	return "trust:" + userID + ":" + deviceID
}

func deviceToDTO(d *repository.TrustedDevice) *dto.DeviceInfo {
	out := &dto.DeviceInfo{
		DeviceID:   d.DeviceID,
		TrustedAt:  d.CreatedAt,
		LastUsedAt: d.LastUsedAt,
	}
	if d.Label != nil {
		out.Label = *d.Label
	}
	return out
}
