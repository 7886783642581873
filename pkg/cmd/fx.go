package cmd

import "go.uber.org/fx"

var Module = fx.Module("cli",
	fx.Provide(
		newRuntime,
		fx.Annotate(applyCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(fastForward, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(historyCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(initCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(lockCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(newCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(purge, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(revert, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(runCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(status, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(sum, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(Run),
)
