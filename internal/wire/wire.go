//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"lexsim-api/internal/application/usage"
	"lexsim-api/internal/config"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config, recorder *usage.Recorder) (*App, func(), error) {
	wire.Build(
		LLMSet,
		RateLimitSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
