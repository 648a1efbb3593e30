package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2/app"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/reactionsync/internal/config"
	"github.com/kikiluvv/reactionsync/internal/engine"
	"github.com/kikiluvv/reactionsync/internal/ffmpeg"
	"github.com/kikiluvv/reactionsync/internal/logging"
	"github.com/kikiluvv/reactionsync/internal/remote"
	"github.com/kikiluvv/reactionsync/internal/session"
	"github.com/kikiluvv/reactionsync/internal/topology"
	"github.com/kikiluvv/reactionsync/internal/ui"
	"github.com/kikiluvv/reactionsync/pkg/util"
)

const appID = "com.kikiluvv.reactionsync"

var (
	cfgFile  string
	verbose  bool
	offset   string
	listen   string
	headless bool
	force    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reactionsync [reaction video] [source video]",
	Short: "reactionsync - watch a reaction video in lockstep with its source",
	Long: "Plays a reaction video and the video being reacted to side by side, " +
		"keeping the source at a fixed offset behind the reaction.",
	Args:         cobra.MaximumNArgs(2),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if listen != "" {
			cfg.Remote.Listen = listen
		}

		cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
		return nil
	},
	RunE: runPlayer,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./reactionsync.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Flags().StringVar(&offset, "offset", "", "initial source offset, seconds or [-]M:SS")
	rootCmd.Flags().StringVar(&listen, "listen", "", "serve the remote control API on this address")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "run without windows, controlled through the remote API")

	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func runPlayer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)

	var reaction, source string
	if len(args) > 0 {
		reaction = args[0]
	}
	if len(args) > 1 {
		source = args[1]
	}
	cli := logging.WithComponent("cli")
	for _, p := range []string{reaction, source} {
		if p == "" {
			continue
		}
		if !util.FileExists(p) {
			return fmt.Errorf("file not found: %s", p)
		}
		if !util.IsVideoFile(p) {
			cli.Warn().Str("path", p).Msg("unrecognised video extension, trying anyway")
		}
	}

	var initialOffset float64
	if offset != "" {
		d, err := util.ParseTimestamp(offset)
		if err != nil {
			return err
		}
		initialOffset = d.Seconds()
	}

	version, err := engine.CheckAvailable(ctx, cfg.Engine.BinaryPath)
	if err != nil {
		cli.Error().Err(err).Msg("media engine unavailable, install mpv or set engine.binary_path")
		return err
	}
	cli.Info().Str("engine", version).Msg("media engine found")

	factory := engine.NewMPVFactory(log.Logger, cfg.Engine.ConnectTimeout)
	prober, grabber := probeTools(cfg)

	if headless {
		return runHeadless(ctx, cfg, factory, prober, reaction, source, initialOffset)
	}

	a, err := ui.New(ctx, log.Logger, cfg, app.NewWithID(appID), ui.Options{
		Factory: factory,
		Prober:  prober,
		Grabber: grabber,
	})
	if err != nil {
		return err
	}

	if cfg.Remote.Listen != "" {
		startRemote(ctx, a.Session(), cfg.Remote.Listen)
	}

	a.Run(reaction, source, initialOffset)
	return nil
}

// probeTools returns ffmpeg-backed helpers, or nils when ffmpeg is missing
func probeTools(cfg *config.Config) (session.DurationProber, ui.FrameGrabber) {
	exec, err := ffmpeg.New(log.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("ffmpeg not available, duration fallback and posters disabled")
		return nil, nil
	}
	if !cfg.Engine.Posters {
		return exec, nil
	}
	return exec, exec
}

func startRemote(ctx context.Context, sess *session.Session, addr string) {
	hub := remote.NewHub(log.Logger)
	sess.Subscribe(hub.Publish)
	go hub.Run(ctx)

	srv := remote.NewServer(log.Logger, sess, hub)
	go func() {
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("remote control stopped")
		}
	}()
}

func runHeadless(ctx context.Context, cfg *config.Config, factory engine.Factory,
	prober session.DurationProber, reaction, source string, initialOffset float64) error {

	if cfg.Remote.Listen == "" {
		return fmt.Errorf("headless mode needs --listen or remote.listen")
	}

	loop := session.NewLoop()
	go loop.Run(ctx)

	sess, err := session.Build(ctx, log.Logger, cfg, loop, factory,
		topology.VirtualSlots(), topology.Chrome{}, prober)
	if err != nil {
		return err
	}

	err = sess.Do(ctx, func(s *session.Session) error {
		startRemote(ctx, s, cfg.Remote.Listen)
		s.Start()
		if initialOffset != 0 {
			s.SetOffset(initialOffset)
		}
		if err := s.Load(session.Reaction, reaction); err != nil {
			return err
		}
		return s.Load(session.Source, source)
	})
	if err != nil {
		log.Warn().Err(err).Msg("initial load failed")
	}

	log.Info().Str("addr", cfg.Remote.Listen).Msg("running headless, ctrl-c to quit")
	<-ctx.Done()

	// the loop is gone with ctx, so close directly
	sess.Close()
	return nil
}

var probeCmd = &cobra.Command{
	Use:   "probe [video]",
	Short: "Show what ffprobe reports for a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exec, err := ffmpeg.New(log.Logger)
		if err != nil {
			return err
		}

		info, err := exec.ProbeVideo(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		log.Info().
			Str("file", info.FilePath).
			Str("duration", util.FormatClock(info.Duration.Seconds())).
			Int("width", info.Width).
			Int("height", info.Height).
			Float64("fps", info.FPS).
			Str("video_codec", info.VideoCodec).
			Bool("audio", info.HasAudio).
			Str("audio_codec", info.AudioCodec).
			Msg("probe complete")
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that mpv and ffmpeg can be found",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		version, err := engine.CheckAvailable(cmd.Context(), cfg.Engine.BinaryPath)
		if err != nil {
			return err
		}
		log.Info().Str("engine", version).Msg("media engine ok")

		if _, err := ffmpeg.New(log.Logger); err != nil {
			log.Warn().Err(err).Msg("ffmpeg missing, duration fallback and posters disabled")
			return nil
		}
		log.Info().Msg("ffmpeg ok")
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "reactionsync.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) && !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}
