package components

import (
	"venuebook/internal/pkg/clock"
	"venuebook/internal/usecase/commands"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	fx.Provide(
		clock.NewRealClock,
		commands.NewBookingCommands,
		commands.NewWaitlistCommands,
	),
)
