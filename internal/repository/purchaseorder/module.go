package purchaseorder

import "go.uber.org/fx"

// Module provides the purchase order repository to Fx, exposed as Store.
var Module = fx.Provide(
	fx.Annotate(NewRepository, fx.As(new(Store))),
)
