package deliverynote

import "go.uber.org/fx"

// Module provides the delivery note service to Fx.
var Module = fx.Provide(NewService)
