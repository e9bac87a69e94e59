package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/schedario/schedario/pkg/config"
	"github.com/schedario/schedario/pkg/docstore"
	"github.com/schedario/schedario/pkg/health"
	"github.com/schedario/schedario/pkg/notify"
	"github.com/schedario/schedario/pkg/observability/logger"
	"github.com/schedario/schedario/pkg/store"
	"github.com/schedario/schedario/pkg/version"
)

// Options defines how a host service mounts the standard command tree.
type Options struct {
	Name        string
	Description string
	ConfigPath  string
	// Optional: called with the resolved path to the configuration file after flags are parsed.
	ConfigPathResolved func(string)
	EnvPrefix          string

	// Optional: additional service-specific commands.
	CustomCommands []*cobra.Command
}

// NewRootCommand creates a standardized CLI with version, config, health and
// collection tooling subcommands.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "APP"
	}

	rootCmd := &cobra.Command{
		Use:   opts.Name,
		Short: opts.Description,
	}

	var cfgPath string
	var secretFilePath string
	var collectionOverride string
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config-file", "c", opts.ConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&secretFilePath, "secret-file", "", "path to secrets file merged over the config file")
	rootCmd.PersistentFlags().StringVar(&collectionOverride, "collection", "", "collection name override")

	newLoader := func() *config.ViperLoader {
		if opts.ConfigPathResolved != nil {
			opts.ConfigPathResolved(cfgPath)
		}
		return config.NewViperLoader(cfgPath, opts.EnvPrefix).
			WithServiceNameDefault(opts.Name).
			WithSecretsFile(secretFilePath)
	}

	loadConfig := func() (*config.Config, logger.Logger, error) {
		cfg, err := newLoader().Load()
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		log, err := newLogger(cfg)
		if err != nil {
			return nil, nil, err
		}
		return cfg, log, nil
	}

	openStore := func(cmd *cobra.Command) (docstore.Store, *config.Config, func(), error) {
		cfg, log, err := loadConfig()
		if err != nil {
			return nil, nil, nil, err
		}
		s, cleanup, err := buildStore(cmd, cfg, log, collectionOverride)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, cfg, cleanup, nil
	}

	// version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Current(opts.Name)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Service:    %s\n", info.Service)
			fmt.Fprintf(out, "Version:    %s\n", info.Version)
			fmt.Fprintf(out, "Commit:     %s\n", info.Commit)
			fmt.Fprintf(out, "Build Time: %s\n", info.BuildTime)
		},
	})

	// config command
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := newLoader().Load(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	})

	var showSecrets bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := newLoader()
			if _, err := loader.Load(); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			settings := loader.Settings()
			if !showSecrets {
				redactSecrets(settings)
			}
			data, err := yaml.Marshal(settings)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")
	configCmd.AddCommand(showCmd)
	rootCmd.AddCommand(configCmd)

	// health command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the configured backend, cache and notifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			return runHealthChecks(cmd, cfg, log)
		},
	})

	// get command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Fetch a document by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, cleanup, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := s.FindByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	})

	// put command
	var putID string
	putCmd := &cobra.Command{
		Use:   "put [document]",
		Short: "Create a document, or update one when --id is given",
		Long: "Create a document from the JSON given as argument or on stdin. " +
			"With --id the JSON is merged field-by-field into the existing document instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(cmd, args)
			if err != nil {
				return err
			}

			s, _, cleanup, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			var result docstore.Document
			if putID != "" {
				result, err = s.Update(cmd.Context(), putID, doc)
			} else {
				result, err = s.Create(cmd.Context(), doc)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	putCmd.Flags().StringVar(&putID, "id", "", "update the document with this id instead of creating one")
	rootCmd.AddCommand(putCmd)

	// rm command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a document by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, cleanup, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := s.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	})

	// ls command
	var lsLimit int
	var lsOrderBy string
	var lsCursor string
	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List documents, paged when --order-by or --cursor is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			var continuation *docstore.Cursor
			if lsCursor != "" {
				decoded, err := docstore.DecodeCursor(lsCursor)
				if err != nil {
					return err
				}
				continuation = decoded
			}

			s, _, cleanup, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := s.List(cmd.Context(), lsLimit, lsOrderBy, continuation)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch r := result.(type) {
			case docstore.All:
				return printJSON(out, r.Docs)
			case docstore.Page:
				if err := printJSON(out, r.Docs); err != nil {
					return err
				}
				if r.Next != nil {
					token, err := r.Next.Encode()
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "next cursor: %s\n", token)
				}
				return nil
			default:
				return fmt.Errorf("unexpected list result %T", result)
			}
		},
	}
	lsCmd.Flags().IntVar(&lsLimit, "limit", 0, "page size for ordered listings")
	lsCmd.Flags().StringVar(&lsOrderBy, "order-by", "", "field to order by, ascending")
	lsCmd.Flags().StringVar(&lsCursor, "cursor", "", "continuation token from a previous page")
	rootCmd.AddCommand(lsCmd)

	// find command
	var findWhere []string
	var findOrderBy []string
	var findLimit int
	findCmd := &cobra.Command{
		Use:   "find",
		Short: "Query documents by filter conditions",
		RunE: func(cmd *cobra.Command, args []string) error {
			conditions, err := parseConditions(findWhere)
			if err != nil {
				return err
			}

			s, _, cleanup, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			docs, err := s.Find(cmd.Context(), docstore.FindOptions{
				Conditions: conditions,
				Limit:      findLimit,
				OrderBy:    findOrderBy,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), docs)
		},
	}
	findCmd.Flags().StringArrayVar(&findWhere, "where", nil, "filter condition as field,op,value (repeatable)")
	findCmd.Flags().StringArrayVar(&findOrderBy, "order-by", nil, "field to order by, ascending (repeatable)")
	findCmd.Flags().IntVar(&findLimit, "limit", 0, "maximum number of documents to return")
	rootCmd.AddCommand(findCmd)

	// seed command
	var seedCount int
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create fixture documents in the collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if seedCount <= 0 {
				return fmt.Errorf("count must be positive, got %d", seedCount)
			}

			s, _, cleanup, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			for i := 1; i <= seedCount; i++ {
				doc := docstore.Document{
					"_id":        uuid.NewString(),
					"name":       fmt.Sprintf("fixture-%03d", i),
					"seq":        i,
					"created_at": time.Now().UTC().Format(time.RFC3339),
				}
				created, err := s.Create(cmd.Context(), doc)
				if err != nil {
					return fmt.Errorf("seed document %d: %w", i, err)
				}
				fmt.Fprintln(out, created.ID())
			}
			fmt.Fprintf(out, "seeded %d documents into %q\n", seedCount, s.Collection())
			return nil
		},
	}
	seedCmd.Flags().IntVar(&seedCount, "count", 10, "number of fixture documents to create")
	rootCmd.AddCommand(seedCmd)

	for _, customCmd := range opts.CustomCommands {
		rootCmd.AddCommand(customCmd)
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = false
	rootCmd.InitDefaultCompletionCmd()

	return rootCmd
}

// buildStore assembles the decorated store stack for the data commands:
// adapter first, then cache, notifications and tracing as the configuration
// enables them. The returned cleanup disconnects the adapter and closes
// whatever decorator resources were opened.
func buildStore(cmd *cobra.Command, cfg *config.Config, log logger.Logger, collectionOverride string) (docstore.Store, func(), error) {
	collection := strings.TrimSpace(collectionOverride)
	if collection == "" {
		collection = strings.TrimSpace(cfg.Database.Collection)
	}
	if collection == "" {
		return nil, nil, errors.New("collection is required (set --collection or database.collection)")
	}

	adapter := docstore.New(docstore.Options{
		Config:  cfg.Database,
		Factory: store.OpenClient,
		Logger:  log,
	})
	if err := adapter.Init(cmd.Context(), docstore.CollectionOwner(collection)); err != nil {
		return nil, nil, err
	}
	if err := adapter.Connect(cmd.Context()); err != nil {
		return nil, nil, err
	}

	var closers []io.Closer
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn("failed to close store resource", "error", err)
			}
		}
		if err := adapter.Disconnect(); err != nil {
			log.Warn("failed to disconnect adapter", "error", err)
		}
	}

	var s docstore.Store = adapter

	if cfg.Cache.Enabled {
		cache, err := store.NewDocumentCache(cfg.Cache, log)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if cache != nil {
			if closer, ok := cache.(io.Closer); ok {
				closers = append(closers, closer)
			}
			s = docstore.NewCachedStore(s, cache, docstore.CacheConfig{
				Prefix: cfg.Cache.Prefix,
				TTL:    cfg.Cache.TTL,
			}, log)
		}
	}

	if cfg.Notify.Enabled {
		notifier, err := newNotifier(cfg.Notify, log)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, notifier)
		s = docstore.NewNotifyingStore(s, notifier, log)
	}

	if cfg.Observability.TracingEnabled {
		s = docstore.NewTracedStore(s, cfg.Database.Type)
	}

	return s, cleanup, nil
}

func newNotifier(cfg config.NotifyConfig, log logger.Logger) (notify.Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case config.NotifyTypeKafka:
		return notify.NewKafkaNotifier(notify.KafkaConfig{
			Brokers:          cfg.Brokers,
			Topic:            cfg.Topic,
			OperationTimeout: cfg.OperationTimeout,
		}, log)
	case config.NotifyTypeMemory, "":
		return notify.NewMemoryNotifier(), nil
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", cfg.Type)
	}
}

// runHealthChecks probes every dependency the configuration names and prints
// one line per check. It returns an error when any check is unhealthy so the
// process exit code reflects the overall state.
func runHealthChecks(cmd *cobra.Command, cfg *config.Config, log logger.Logger) error {
	registry := health.NewRegistry()

	client, err := store.OpenClient(cmd.Context(), cfg.Database, log)
	if err != nil {
		return fmt.Errorf("open backend client: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("failed to close backend client", "error", closeErr)
		}
	}()
	if checkable, ok := client.(health.Checkable); ok {
		registry.Register(health.NewDatabaseChecker("database", checkable))
	}

	if cfg.Cache.Enabled {
		cache, err := store.NewDocumentCache(cfg.Cache, log)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		if checkable, ok := cache.(health.Checkable); ok {
			registry.Register(health.NewCacheChecker("cache", checkable))
		}
		if closer, ok := cache.(io.Closer); ok {
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					log.Warn("failed to close cache", "error", closeErr)
				}
			}()
		}
	}

	if cfg.Notify.Enabled {
		notifier, err := newNotifier(cfg.Notify, log)
		if err != nil {
			return fmt.Errorf("open notifier: %w", err)
		}
		defer func() {
			if closeErr := notifier.Close(); closeErr != nil {
				log.Warn("failed to close notifier", "error", closeErr)
			}
		}()
		if checkable, ok := notifier.(health.Checkable); ok {
			registry.Register(health.NewMessageBrokerChecker("notify", checkable))
		}
	}

	result := registry.Check(cmd.Context())
	out := cmd.OutOrStdout()
	for _, check := range result.Checks {
		line := fmt.Sprintf("%-10s %s", check.Name, check.Status)
		if check.Error != "" {
			line += ": " + check.Error
		} else if check.Message != "" {
			line += ": " + check.Message
		}
		fmt.Fprintln(out, line)
	}
	if !result.IsHealthy() {
		return errors.New("one or more dependencies are unhealthy")
	}
	return nil
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.NewZapLogger(logger.Config{
		Level:  logger.LogLevel(cfg.Observability.LogLevel),
		Format: logger.LogFormat(cfg.Observability.LogFormat),
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}

// readDocument parses the document JSON from the argument, falling back to
// stdin when no argument is given.
func readDocument(cmd *cobra.Command, args []string) (docstore.Document, error) {
	var raw []byte
	if len(args) > 0 {
		raw = []byte(args[0])
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read document from stdin: %w", err)
		}
		raw = data
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, errors.New("document JSON is required (argument or stdin)")
	}

	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse document JSON: %w", err)
	}
	return doc, nil
}

var conditionOps = map[docstore.Op]struct{}{
	docstore.OpEqual:          {},
	docstore.OpNotEqual:       {},
	docstore.OpLess:           {},
	docstore.OpLessOrEqual:    {},
	docstore.OpGreater:        {},
	docstore.OpGreaterOrEqual: {},
	docstore.OpIn:             {},
	docstore.OpNotIn:          {},
}

func parseConditions(specs []string) ([]docstore.Condition, error) {
	conditions := make([]docstore.Condition, 0, len(specs))
	for _, spec := range specs {
		condition, err := parseCondition(spec)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, condition)
	}
	return conditions, nil
}

// parseCondition parses a "field,op,value" triple. The value is decoded as
// JSON when possible, so numbers, booleans and arrays keep their type;
// anything that does not parse as JSON is treated as a plain string.
func parseCondition(spec string) (docstore.Condition, error) {
	parts := strings.SplitN(spec, ",", 3)
	if len(parts) != 3 {
		return docstore.Condition{}, fmt.Errorf("invalid condition %q: expected field,op,value", spec)
	}
	field := strings.TrimSpace(parts[0])
	if field == "" {
		return docstore.Condition{}, fmt.Errorf("invalid condition %q: empty field", spec)
	}
	op := docstore.Op(strings.TrimSpace(parts[1]))
	if _, ok := conditionOps[op]; !ok {
		return docstore.Condition{}, fmt.Errorf("invalid condition %q: unsupported operator %q", spec, parts[1])
	}
	return docstore.Where(field, op, parseConditionValue(parts[2])), nil
}

func parseConditionValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	var value any
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return trimmed
	}
	return value
}

var secretSettingKeys = map[string]struct{}{
	"password":          {},
	"secret_access_key": {},
	"session_token":     {},
}

// redactSecrets masks credential leaves in the settings tree in place.
// Empty values stay visible so the output still shows which keys are unset.
func redactSecrets(settings map[string]any) {
	for key, value := range settings {
		if nested, ok := value.(map[string]any); ok {
			redactSecrets(nested)
			continue
		}
		if _, secret := secretSettingKeys[key]; !secret {
			continue
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		settings[key] = "***"
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// Execute runs the command and exits with appropriate code.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
