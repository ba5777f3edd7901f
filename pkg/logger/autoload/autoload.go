// Package autoload configures the global logger from the environment as a
// side effect of being imported. Blank-import it from main.
package autoload

import (
	configx "github.com/dhraviq/agent-gateway/pkg/config"
	logx "github.com/dhraviq/agent-gateway/pkg/logger"
)

func init() {
	cfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*cfg)
}
