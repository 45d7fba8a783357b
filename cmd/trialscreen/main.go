// cmd/trialscreen/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"trialscreen/internal/catalog"
	"trialscreen/internal/common/config"
	apperrors "trialscreen/internal/common/errors"
	"trialscreen/internal/common/logger"
	"trialscreen/internal/common/observability"
	"trialscreen/internal/common/session"
	"trialscreen/internal/gateway"
	"trialscreen/internal/intake/bulk"
	"trialscreen/internal/intake/single"
	"trialscreen/internal/template"
)

const usage = `usage: trialscreen <command> [flags]

commands:
  apply      submit a single application for eligibility screening
  upload     upload a cohort file for bulk eligibility screening
  template   print or save the cohort file template for a trial type
  analytics  show aggregate screening counts
  history    list the session user's past applications
  health     check evaluation service reachability
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	zl := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zl.Sync()
	log := logger.Wrap(zl)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Address, zl)
	}

	ctx := context.Background()

	sc, err := loadSession(ctx, cfg, log)
	if err != nil {
		zl.Warn("continuing with anonymous session", zap.Error(err))
		sc = session.Context{}
	}

	gw := gateway.NewClient(
		cfg.Service.BaseURL,
		cfg.Service.Timeout(),
		cfg.Service.UploadTimeout(),
		sc,
		log,
		obs,
	)

	var cmdErr error
	switch os.Args[1] {
	case "apply":
		cmdErr = runApply(ctx, os.Args[2:], gw, sc, log)
	case "upload":
		cmdErr = runUpload(ctx, os.Args[2:], gw, sc, log)
	case "template":
		cmdErr = runTemplate(os.Args[2:])
	case "analytics":
		cmdErr = runAnalytics(ctx, gw)
	case "history":
		cmdErr = runHistory(ctx, gw, sc)
	case "health":
		cmdErr = gw.Health(ctx)
		if cmdErr == nil {
			fmt.Println("evaluation service is reachable")
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], cmdErr)
		os.Exit(1)
	}
}

func serveMetrics(addr string, zl *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		zl.Warn("metrics endpoint stopped", zap.Error(err))
	}
}

// loadSession resolves the session context from redis when configured. The
// session id comes from TRIALSCREEN_SESSION; absent either, the run is
// anonymous.
func loadSession(ctx context.Context, cfg *config.Config, log logger.Logger) (session.Context, error) {
	id := os.Getenv("TRIALSCREEN_SESSION")
	if cfg.Redis.Address == "" || id == "" {
		return session.Context{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := session.NewRedisStore(client, cfg.Session.TTL(), log)
	sc, err := store.Load(ctx, id)
	if err != nil {
		return session.Context{}, err
	}
	return *sc, nil
}

func runApply(ctx context.Context, args []string, gw gateway.Gateway, sc session.Context, log logger.Logger) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	trialFlag := fs.String("trial", "", "trial type (hypertension|arthritis|migraine|phase1)")
	dataFlag := fs.String("data", "", "application values as a JSON object")
	dataFile := fs.String("data-file", "", "path to a JSON file with application values")
	fs.Parse(args)

	trial, err := catalog.Parse(*trialFlag)
	if err != nil {
		return err
	}
	values, err := readValues(*dataFlag, *dataFile)
	if err != nil {
		return err
	}

	ctrl := single.NewController(gw, sc, log)
	if err := ctrl.SelectTrial(ctx, trial); err != nil {
		return err
	}
	for name, value := range values {
		if err := ctrl.EditField(name, value); err != nil {
			return err
		}
	}

	outcome, err := ctrl.Submit(ctx)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrCodeValidationFailed {
			printViolations(err)
		}
		return err
	}

	fmt.Printf("Patient ID:  #%d\n", outcome.PatientID)
	fmt.Printf("Trial type:  %s\n", outcome.TrialType)
	fmt.Printf("Eligibility: %s\n", outcome.Eligibility)
	fmt.Printf("Message:     %s\n", outcome.Message)
	return nil
}

func printViolations(err error) {
	stdErr, ok := err.(*apperrors.StandardError)
	if !ok || stdErr.Metadata == nil {
		return
	}
	if msgs, ok := stdErr.Metadata["violations"].([]string); ok {
		for _, m := range msgs {
			fmt.Fprintf(os.Stderr, "  - %s\n", m)
		}
	}
}

// readValues decodes the field values from -data or -data-file. Numbers and
// booleans are accepted and rendered to the raw string form the draft
// expects.
func readValues(inline, path string) (map[string]string, error) {
	var raw []byte
	switch {
	case inline != "":
		raw = []byte(inline)
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = data
	default:
		return nil, fmt.Errorf("one of -data or -data-file is required")
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("invalid application values: %w", err)
	}

	values := make(map[string]string, len(decoded))
	for k, v := range decoded {
		switch val := v.(type) {
		case string:
			values[k] = val
		case float64:
			values[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			values[k] = strconv.FormatBool(val)
		case nil:
			values[k] = ""
		default:
			return nil, fmt.Errorf("field %q: unsupported value type", k)
		}
	}
	return values, nil
}

func runUpload(ctx context.Context, args []string, gw gateway.Gateway, sc session.Context, log logger.Logger) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	trialFlag := fs.String("trial", "", "trial type (hypertension|arthritis|migraine|phase1)")
	fileFlag := fs.String("file", "", "path to the cohort CSV/Excel file")
	fs.Parse(args)

	trial, err := catalog.Parse(*trialFlag)
	if err != nil {
		return err
	}
	if *fileFlag == "" {
		return fmt.Errorf("-file is required")
	}

	info, err := os.Stat(*fileFlag)
	if err != nil {
		return err
	}

	ctrl := bulk.NewController(gw, sc, log)
	if err := ctrl.ChooseTrialType(trial); err != nil {
		return err
	}
	if err := ctrl.ChooseFile(bulk.FileRef{
		Name: filepath.Base(*fileFlag),
		Size: info.Size(),
		MIME: mime.TypeByExtension(filepath.Ext(*fileFlag)),
	}); err != nil {
		return err
	}

	f, err := os.Open(*fileFlag)
	if err != nil {
		return err
	}
	defer f.Close()

	results, err := ctrl.Upload(ctx, f)
	if err != nil {
		return err
	}

	fmt.Printf("Total processed: %d\n", results.TotalProcessed)
	fmt.Printf("Eligible:        %d\n", results.Eligible)
	fmt.Printf("Ineligible:      %d\n", results.Ineligible)
	fmt.Printf("Errors:          %d\n", results.Errors)

	if len(results.Results) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ROW\tPATIENT ID\tELIGIBILITY\tSTATUS")
		for _, row := range results.Results {
			status := "Processed"
			if row.Error != "" {
				status = row.Error
			}
			patientID := "N/A"
			if row.PatientID != 0 {
				patientID = fmt.Sprintf("#%d", row.PatientID)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", row.Row, patientID, row.Eligibility, status)
		}
		w.Flush()
	}
	return nil
}

func runTemplate(args []string) error {
	fs := flag.NewFlagSet("template", flag.ExitOnError)
	trialFlag := fs.String("trial", "", "trial type (hypertension|arthritis|migraine|phase1)")
	xlsxFlag := fs.Bool("xlsx", false, "generate an Excel workbook instead of CSV")
	outFlag := fs.String("out", "", "output path (defaults to the template filename)")
	fs.Parse(args)

	trial, err := catalog.Parse(*trialFlag)
	if err != nil {
		return err
	}

	var data []byte
	name := template.Filename(trial)
	if *xlsxFlag {
		data, err = template.XLSX(trial)
		name = template.XLSXFilename(trial)
	} else {
		data, err = template.CSV(trial)
	}
	if err != nil {
		return err
	}

	out := *outFlag
	if out == "" {
		out = name
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("template written to %s\n", out)
	return nil
}

func runAnalytics(ctx context.Context, gw gateway.Gateway) error {
	summary, err := gw.Analytics(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL TYPE\tTOTAL\tELIGIBLE\tINELIGIBLE")
	for _, s := range summary.Summary {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", s.TrialType, s.TotalApplications, s.Eligible, s.Ineligible)
	}
	w.Flush()
	if summary.LastUpdated != "" {
		fmt.Printf("\nlast updated: %s\n", summary.LastUpdated)
	}
	return nil
}

func runHistory(ctx context.Context, gw gateway.Gateway, sc session.Context) error {
	if sc.Anonymous() {
		return fmt.Errorf("history requires a signed-in session (set TRIALSCREEN_SESSION)")
	}

	records, err := gw.MyApplications(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no applications yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL TYPE\tELIGIBILITY\tAPPLIED ON")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.TrialType, r.Eligibility, r.CreatedAt)
	}
	w.Flush()
	return nil
}
