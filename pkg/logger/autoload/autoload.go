// Package autoload initializes the global logger from the environment when
// imported for side effect.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/stylora/concierge/pkg/logger"
)

func init() {
	var conf logx.Config
	if err := envconfig.Process("LOG", &conf); err != nil {
		logx.Init()
		return
	}
	logx.Init(conf)
}
