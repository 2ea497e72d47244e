package deliverynote

import "go.uber.org/fx"

// Module provides the delivery note repository to Fx, exposed as Store.
var Module = fx.Provide(
	fx.Annotate(NewRepository, fx.As(new(Store))),
)
