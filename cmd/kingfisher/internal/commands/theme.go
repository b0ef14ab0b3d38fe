package commands

import (
	"context"

	"github.com/wolfeidau/kingfisher/internal/app"
	"github.com/wolfeidau/kingfisher/internal/prefs"
)

type ThemeCmd struct {
	Get    ThemeGetCmd    `cmd:"" default:"1" help:"Show the theme"`
	Set    ThemeSetCmd    `cmd:"" help:"Set the theme"`
	Toggle ThemeToggleCmd `cmd:"" help:"Switch between light and dark"`
}

type ThemeGetCmd struct{}

func (c *ThemeGetCmd) Run(ctx context.Context, globals *Globals) error {
	defer globals.setup(ctx)()

	ctrl := globals.controller(ctx, app.Config{})
	defer closeController(ctrl)

	printf(globals.stdout(), "%s\n", ctrl.Prefs.Theme())
	return nil
}

type ThemeSetCmd struct {
	Theme string `arg:"" enum:"light,dark" help:"light or dark"`
}

func (c *ThemeSetCmd) Run(ctx context.Context, globals *Globals) error {
	defer globals.setup(ctx)()

	theme, err := prefs.ParseTheme(c.Theme)
	if err != nil {
		return err
	}

	ctrl := globals.controller(ctx, app.Config{})
	defer closeController(ctrl)

	ctrl.SetTheme(ctx, theme)
	printf(globals.stdout(), "%s\n", theme)
	return nil
}

type ThemeToggleCmd struct{}

func (c *ThemeToggleCmd) Run(ctx context.Context, globals *Globals) error {
	defer globals.setup(ctx)()

	ctrl := globals.controller(ctx, app.Config{})
	defer closeController(ctrl)

	printf(globals.stdout(), "%s\n", ctrl.ToggleTheme(ctx))
	return nil
}
