package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/trackcqishibee-web/locallife-assistant/internal/model"
	"github.com/trackcqishibee-web/locallife-assistant/internal/storage"
)

var ErrVerificationFailed = errors.New("token verification failed")

// IdentityAPI is the backend auth surface.
type IdentityAPI interface {
	VerifyToken(ctx context.Context, token string) (string, error)
	RegisterWithToken(ctx context.Context, token, anonymousID string) (string, error)
}

type identityInternal struct {
	AnonymousID  string `json:"anonymous_id"`
	RegisteredID string `json:"registered_id,omitempty"`
	IsRegistered bool   `json:"is_registered"`
}

type IdentityUsecaseDeps struct {
	Store         storage.Store
	API           IdentityAPI
	Conversations *ConversationUsecase
}

// IdentityUsecase tracks which user id the session speaks as and moves
// the conversation across identity changes. An anonymous id is minted on
// first use and survives restarts; registration and login replace it with
// a backend-verified id.
type IdentityUsecase struct {
	IdentityUsecaseDeps
	logger *slog.Logger
}

func NewIdentityUsecase(deps IdentityUsecaseDeps, logger *slog.Logger) *IdentityUsecase {
	return &IdentityUsecase{
		IdentityUsecaseDeps: deps,
		logger:              logger,
	}
}

// Current returns the persisted identity, minting an anonymous one when
// the store holds none.
func (u *IdentityUsecase) Current(ctx context.Context) (model.Identity, error) {
	raw, err := u.Store.Get(ctx, storage.KeyIdentity)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return u.mintAnonymous(ctx)
		}
		return model.Identity{}, fmt.Errorf("failed to load identity: %w", err)
	}

	var internal identityInternal
	if err := json.Unmarshal(raw, &internal); err != nil {
		return model.Identity{}, fmt.Errorf("failed to unmarshal identity: %w", err)
	}
	return model.Identity{
		AnonymousID:  internal.AnonymousID,
		RegisteredID: internal.RegisteredID,
		IsRegistered: internal.IsRegistered,
	}, nil
}

// Login verifies the token and, on success, switches to the registered
// identity carrying the current conversation along. Verification failure
// leaves the session untouched.
func (u *IdentityUsecase) Login(ctx context.Context, token string) (model.Identity, error) {
	registeredID, err := u.API.VerifyToken(ctx, token)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	return u.adoptRegistered(ctx, registeredID)
}

// Register exchanges the anonymous id for a registered one on the
// backend, which lifts the trial limit and re-homes usage history.
func (u *IdentityUsecase) Register(ctx context.Context, token string) (model.Identity, error) {
	current, err := u.Current(ctx)
	if err != nil {
		return model.Identity{}, err
	}
	registeredID, err := u.API.RegisterWithToken(ctx, token, current.AnonymousID)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	return u.adoptRegistered(ctx, registeredID)
}

// Logout is the symmetric switch back to the retained anonymous identity,
// or a fresh one when there is nothing to return to. It runs the same
// preserve-then-fallback protocol as login: when preserve is set the
// current transcript is kept as the snapshot, otherwise it is dropped
// before the switch.
func (u *IdentityUsecase) Logout(ctx context.Context, preserve bool) (model.Identity, error) {
	current, err := u.Current(ctx)
	if err != nil {
		return model.Identity{}, err
	}

	if !preserve {
		if err := u.Conversations.Reset(ctx); err != nil {
			return model.Identity{}, err
		}
	} else if err := u.setPreserveFlag(ctx, true); err != nil {
		return model.Identity{}, err
	}

	var identity model.Identity
	if current.IsRegistered && current.AnonymousID != "" {
		identity = model.Identity{AnonymousID: current.AnonymousID}
		if err := u.persist(ctx, identity); err != nil {
			return model.Identity{}, err
		}
	} else {
		identity, err = u.mintAnonymous(ctx)
		if err != nil {
			return model.Identity{}, err
		}
	}

	if err := u.migrateConversation(ctx, identity.AnonymousID); err != nil {
		return model.Identity{}, err
	}
	if err := u.setPreserveFlag(ctx, false); err != nil {
		return model.Identity{}, err
	}
	return identity, nil
}

// adoptRegistered persists the registered identity and migrates the
// conversation. The preserve flag is raised before the swap so a crash
// between the two steps cannot lose the transcript.
func (u *IdentityUsecase) adoptRegistered(ctx context.Context, registeredID string) (model.Identity, error) {
	current, err := u.Current(ctx)
	if err != nil {
		return model.Identity{}, err
	}

	if err := u.setPreserveFlag(ctx, true); err != nil {
		return model.Identity{}, err
	}

	identity := model.Identity{
		AnonymousID:  current.AnonymousID,
		RegisteredID: registeredID,
		IsRegistered: true,
	}
	if err := u.persist(ctx, identity); err != nil {
		return model.Identity{}, err
	}

	if err := u.migrateConversation(ctx, registeredID); err != nil {
		return model.Identity{}, err
	}
	if err := u.setPreserveFlag(ctx, false); err != nil {
		return model.Identity{}, err
	}
	return identity, nil
}

// migrateConversation moves the local conversation to ownerID: a remote
// conversation under the new identity wins, otherwise the local snapshot
// is re-homed, otherwise the slate is cleared. A remote fetch failure
// falls back to the snapshot; it never fails the identity switch.
func (u *IdentityUsecase) migrateConversation(ctx context.Context, ownerID string) error {
	snapshot, snapErr := u.Conversations.LoadLocal(ctx)
	if snapErr != nil && !errors.Is(snapErr, ErrNoConversation) {
		return snapErr
	}

	remote, remoteErr := u.Conversations.FetchRemote(ctx, ownerID, snapshot.ConversationID)
	if remoteErr == nil {
		if err := u.Conversations.Adopt(ctx, remote); err != nil {
			return err
		}
		u.logger.Info("adopted remote conversation",
			"user_id", ownerID, "conversation_id", remote.ConversationID)
		return nil
	}
	if !errors.Is(remoteErr, ErrNoConversation) {
		u.logger.Warn("remote conversation fetch failed, falling back to local snapshot",
			"user_id", ownerID, "error", remoteErr)
	}

	if snapErr == nil {
		snapshot.OwnerID = ownerID
		if err := u.Conversations.Adopt(ctx, snapshot); err != nil {
			return err
		}
		u.logger.Info("carried local conversation across identity switch", "user_id", ownerID)
		return nil
	}
	return u.Conversations.Reset(ctx)
}

func (u *IdentityUsecase) mintAnonymous(ctx context.Context) (model.Identity, error) {
	identity := model.Identity{
		AnonymousID: "anon_" + uuid.New().String(),
	}
	if err := u.persist(ctx, identity); err != nil {
		return model.Identity{}, err
	}
	u.logger.Info("minted anonymous identity", "user_id", identity.AnonymousID)
	return identity, nil
}

func (u *IdentityUsecase) persist(ctx context.Context, identity model.Identity) error {
	raw, err := json.Marshal(identityInternal{
		AnonymousID:  identity.AnonymousID,
		RegisteredID: identity.RegisteredID,
		IsRegistered: identity.IsRegistered,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	if err := u.Store.Set(ctx, storage.KeyIdentity, raw); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}

func (u *IdentityUsecase) setPreserveFlag(ctx context.Context, up bool) error {
	if up {
		if err := u.Store.Set(ctx, storage.KeyPreserveConversation, []byte("1")); err != nil {
			return fmt.Errorf("failed to raise preserve flag: %w", err)
		}
		return nil
	}
	if err := u.Store.Delete(ctx, storage.KeyPreserveConversation); err != nil {
		return fmt.Errorf("failed to clear preserve flag: %w", err)
	}
	return nil
}
