// bundlefx/bundlefx.go
package bundlefx

import (
	"github.com/joeydtaylor/steeze-httpsink/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-httpsink/pkg/middleware/metrics"
	"go.uber.org/fx"
)

// Module provided to fx
var Module = fx.Options(
	logger.Module,
	metrics.Module,
)
