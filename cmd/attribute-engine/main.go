// Command attribute-engine is a minimal composition root demonstrating the
// resolver/filter/service packages wired together end to end. Per spec.md
// 6, the configuration surface that turns a declarative node graph into
// live definitions/connectors/policies is out of scope for the core
// library; this entry point builds one illustrative graph in code and
// serves it, grounded on the teacher's cmd/indexer/main.go composition
// (load config, build service, start, wait for signal, stop).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/R3E-Network/attribute-engine/attrengine"
	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/filter"
	"github.com/R3E-Network/attribute-engine/pkg/attrconfig"
	"github.com/R3E-Network/attribute-engine/pkg/attrlog"
	"github.com/R3E-Network/attribute-engine/pkg/attrmetrics"
	"github.com/R3E-Network/attribute-engine/resolver"
	"github.com/R3E-Network/attribute-engine/resolver/connector/static"
	"github.com/R3E-Network/attribute-engine/resolver/definition"
	"github.com/R3E-Network/attribute-engine/service"
)

func main() {
	log := attrlog.Default()

	cfg, err := attrconfig.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	log = attrlog.New("attribute-engine", cfg.Logging.Level, cfg.Logging.Format)

	reg := prometheus.NewRegistry()
	var metrics *attrmetrics.Recorder
	if cfg.Metrics.Enabled {
		metrics = attrmetrics.New(reg)
	} else {
		metrics = attrmetrics.NoOp()
	}

	build := func() (*attrengine.Snapshot, error) {
		return buildSnapshot(cfg, log, metrics)
	}

	initial, err := build()
	if err != nil {
		log.WithError(err).Fatal("build initial attribute graph")
	}

	svc := attrengine.New(build, initial, cfg.FailFast, cfg.PropagateResolutionExceptions, log)

	var reloader *service.ScheduledReloader
	if cfg.Reload.Enabled {
		reloader, err = service.NewScheduledReloader(cfg.Reload.CronExpr, svc, log)
		if err != nil {
			log.WithError(err).Fatal("start scheduled reloader")
		}
		reloader.Start()
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(":9090", mux); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attrs, err := svc.ResolveAndFilter(ctx, "https://issuer.example.org", "https://sp.example.org", "jdoe", nil)
	if err != nil {
		log.WithError(err).Error("initial sample resolution failed")
	} else {
		log.WithField("attribute_count", len(attrs)).Info("attribute engine ready")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	if reloader != nil {
		reloader.Stop()
	}
}

// buildSnapshot constructs one illustrative resolver+filter graph: a Static
// data connector exporting a department attribute, a Scoped definition
// deriving an eduPersonPrincipalName-style scoped identifier from it, and a
// filter policy permitting everything it produces.
func buildSnapshot(cfg *attrconfig.Config, log *attrlog.Logger, metrics *attrmetrics.Recorder) (*attrengine.Snapshot, error) {
	resolverEngine := resolver.NewEngine("attribute-resolver", cfg.StripNulls, log, metrics)

	dept := static.New("staticDepartment", attribute.New("department", attribute.String("engineering")))
	if err := dept.SetExportAllAttributes(true); err != nil {
		return nil, err
	}
	if err := resolverEngine.AddConnector(dept); err != nil {
		return nil, err
	}

	scoped := definition.NewScoped("scopedDepartment", "example.org")
	if err := scoped.SetDependencies(resolver.Dependencies{
		DataConnectorDependencies: []resolver.DataConnectorDependency{
			{PluginID: "staticDepartment", ExportedAttributeIDs: []string{"department"}},
		},
	}); err != nil {
		return nil, err
	}
	if err := resolverEngine.AddDefinition(scoped); err != nil {
		return nil, err
	}

	if err := resolverEngine.Initialize(); err != nil {
		return nil, err
	}

	filterEngine := filter.NewEngine("attribute-filter", filter.FailDenyAll, log, metrics)
	if err := filterEngine.AddPolicy(filter.FilterPolicy{
		ID:              "releaseAll",
		RequirementRule: filter.MatchesAllRule,
		AttributeRules: []filter.AttributeRule{
			{AnyAttribute: true, PermitRule: filter.MatchesAll{}},
		},
	}); err != nil {
		return nil, err
	}
	if err := filterEngine.Initialize(); err != nil {
		return nil, err
	}

	return &attrengine.Snapshot{Resolver: resolverEngine, Filter: filterEngine}, nil
}
