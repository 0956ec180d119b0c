package demo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/flowgate/pkg/gate"
	"mercator-hq/flowgate/pkg/guard"
)

// GetUserResource guards UserService.GetUserByID.
const GetUserResource = "getUserById"

// Fallback user returned when getUserById is blocked.
const (
	FallbackUserID   = 0
	FallbackUserName = "fallbackUser"
)

// User is returned by UserService.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (u User) String() string {
	return fmt.Sprintf("User{id=%d, name='%s'}", u.ID, u.Name)
}

// UserService looks users up behind the getUserById guard.
type UserService struct {
	site  *guard.CallSite[User]
	delay time.Duration
}

// NewUserService creates a UserService whose lookups and fallbacks take
// 20ms each.
func NewUserService(g *guard.Guard) *UserService {
	s := &UserService{delay: 20 * time.Millisecond}
	site, err := guard.NewCallSite(g, gate.MustResource(GetUserResource, gate.Outbound), s.fallback)
	if err != nil {
		panic(err) // static resource
	}
	s.site = site
	return s
}

// GetUserByID returns the user named XiaoMing with the given id, or the
// fallback user when the call is blocked.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (User, error) {
	return s.site.Call(ctx, func(ctx context.Context) (User, error) {
		if !sleep(ctx, s.delay) {
			return User{}, ctx.Err()
		}
		return User{ID: id, Name: "XiaoMing"}, nil
	})
}

func (s *UserService) fallback(ctx context.Context, _ *gate.BlockError) (User, error) {
	sleep(ctx, s.delay)
	return User{ID: FallbackUserID, Name: FallbackUserName}, nil
}

// UserRequester calls GetUserByID with ids 0, 1, 2, ... after WarmUp.
type UserRequester struct {
	Users  *UserService
	WarmUp time.Duration
	Logger *slog.Logger
}

// Run blocks until ctx is cancelled.
func (r *UserRequester) Run(ctx context.Context) error {
	if !sleep(ctx, r.WarmUp) {
		return nil
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default().With("component", "demo")
	}
	logger.Info("user requester started", "resource", GetUserResource)

	for id := int64(0); ctx.Err() == nil; id++ {
		user, err := r.Users.GetUserByID(ctx, id)
		if err != nil {
			if ctx.Err() == nil {
				logger.ErrorContext(ctx, "user lookup failed", "id", id, "error", err)
			}
			continue
		}
		logger.DebugContext(ctx, "user lookup", "id", id, "user", user.String())
	}
	return nil
}
