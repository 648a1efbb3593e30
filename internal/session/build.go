package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/reactionsync/internal/config"
	"github.com/kikiluvv/reactionsync/internal/engine"
	"github.com/kikiluvv/reactionsync/internal/media"
	"github.com/kikiluvv/reactionsync/internal/topology"
)

// Build creates both surfaces, places them in slots and returns the wired
// session. A surface whose engine fails to start is kept inert; the session
// still comes up.
func Build(ctx context.Context, logger zerolog.Logger, cfg *config.Config, sched Scheduler,
	factory engine.Factory, slots topology.Slots, chrome topology.Chrome, prober DurationProber) (*Session, error) {

	reaction := media.New(ctx, logger, Reaction.String(), factory, engine.OptionsFromConfig(cfg.Engine, Reaction.String()))
	source := media.New(ctx, logger, Source.String(), factory, engine.OptionsFromConfig(cfg.Engine, Source.String()))
	reaction.SetVolume(cfg.Volume.Reaction)
	source.SetVolume(cfg.Volume.Source)

	topo, err := topology.New(logger, slots, chrome, reaction, source)
	if err != nil {
		reaction.Close()
		source.Close()
		return nil, err
	}

	if !cfg.Engine.UseFFprobe {
		prober = nil
	}
	return New(ctx, logger, ConfigFrom(cfg), sched, reaction, source, topo, prober), nil
}
