package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	authorizer "github.com/localnerve/authorizer-go"
	"github.com/localnerve/assemblydb/internal/config"
	"github.com/localnerve/assemblydb/internal/utils"
)

var (
	authClient *authorizer.AuthorizerClient
	authOnce   sync.Once
)

// IsAuthorizerInitialized returns true if the Authorizer client is initialized
func IsAuthorizerInitialized() bool {
	return authClient != nil
}

// InitAuthorizer initializes the Authorizer client (singleton pattern)
func InitAuthorizer(cfg *config.Config, requestProtocol, requestHost string) error {
	var initErr error

	authOnce.Do(func() {
		// Ping the Authorizer service first
		if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
			initErr = fmt.Errorf("authorizer ping failed: %w", err)
			return
		}

		redirectURL := fmt.Sprintf("%s://%s", requestProtocol, requestHost)
		log.Printf("Initializing Authorizer: authorizerURL=%s, clientID=%s, redirectURL=%s",
			cfg.AuthzURL, cfg.AuthzClientID, redirectURL)

		var err error
		authClient, err = authorizer.NewAuthorizerClient(cfg.AuthzClientID, cfg.AuthzURL, redirectURL, nil)
		if err != nil {
			initErr = fmt.Errorf("failed to create authorizer client: %w", err)
			return
		}
	})

	return initErr
}

// sessionUser is the part of the Authorizer user an actor is built from
type sessionUser struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

// ValidateSession validates a session cookie and resolves the actor it
// belongs to. A non-empty roles list must be held by the session.
func ValidateSession(cookie string, roles []string) (Actor, error) {
	if authClient == nil {
		return Actor{}, fmt.Errorf("authorizer client not initialized")
	}

	var rolesPtrs []*string
	for i := range roles {
		rolesPtrs = append(rolesPtrs, &roles[i])
	}

	res, err := authClient.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolesPtrs,
	})
	if err != nil {
		return Actor{}, fmt.Errorf("session validation failed: %w", err)
	}
	if res == nil || !res.IsValid {
		return Actor{}, fmt.Errorf("session is not valid")
	}

	return actorFromUser(res.User)
}

// actorFromUser reads the user through its JSON form so the SDK's pointer
// fields do not leak into the core
func actorFromUser(user any) (Actor, error) {
	raw, err := json.Marshal(user)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid user data format: %w", err)
	}
	var u sessionUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return Actor{}, fmt.Errorf("invalid user data format: %w", err)
	}
	if u.ID == "" {
		return Actor{}, fmt.Errorf("user ID not found")
	}
	return NewActor(u.ID, u.Roles...), nil
}
