package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/engine"
	"github.com/sells-group/lead-pipeline/internal/scoring"
	"github.com/sells-group/lead-pipeline/internal/store"
	sfpkg "github.com/sells-group/lead-pipeline/pkg/salesforce"
)

// env bundles the wired pipeline for a command invocation.
type env struct {
	Store  store.LeadStore
	Engine *engine.Engine
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.LeadStore, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initRules() (scoring.Rules, error) {
	if cfg.Scoring.RulesPath == "" {
		return scoring.DefaultRules(), nil
	}
	return scoring.LoadRules(cfg.Scoring.RulesPath)
}

func initEnv(ctx context.Context) (*env, error) {
	s, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	rules, err := initRules()
	if err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	if err := scoring.Validate(rules); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}

	e := engine.New(s, rules, engine.Options{
		PageSize:         cfg.Engine.PageSize,
		BatchSize:        cfg.Engine.BatchSize,
		WriteRatePerSec:  cfg.Engine.WriteRatePerSec,
		WriteConcurrency: cfg.Engine.WriteConcurrency,
	})
	return &env{Store: s, Engine: e}, nil
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (LEADPIPE_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(cfg.Salesforce.RatePerSec)), nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
