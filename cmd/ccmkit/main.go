package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"ccmkit/internal/analysis"
	"ccmkit/internal/lmi"
	"ccmkit/internal/metrics"
	"ccmkit/internal/session"
	"ccmkit/internal/sim"
	"ccmkit/internal/store"
	"ccmkit/internal/symexpr"
	"ccmkit/internal/system"
)

var (
	configFile string
	presetName string
	dataDir    string
	verbose    bool

	gridSize     float64
	dt           float64
	duration     float64
	solverURL    string
	solveTimeout time.Duration
	certOut      string
	certFile     string
	mode         string
	plotState    int
	estimateRate bool
	noSave       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ccmkit",
		Short: "contraction-metric control analysis and simulation",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(
				tint.NewHandler(os.Stderr, &tint.Options{Level: level}),
			))
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "system config file (yaml)")
	rootCmd.PersistentFlags().StringVar(&presetName, "preset", "", "use a built-in system preset")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ccmkit", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	jacobianCmd := &cobra.Command{
		Use:   "jacobian",
		Short: "print the symbolic Jacobian",
		RunE:  runJacobian,
	}

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "grid eigenvalue stability scan",
		RunE:  runScan,
	}
	scanCmd.Flags().Float64Var(&gridSize, "grid", 0.5, "grid spacing per state dimension")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "solve the LMI and store the contraction certificate",
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().StringVar(&solverURL, "solver", "http://localhost:8000", "LMI solver base URL")
	analyzeCmd.Flags().DurationVar(&solveTimeout, "timeout", 2*time.Minute, "solver request timeout")
	analyzeCmd.Flags().StringVar(&certOut, "out", "certificate.json", "certificate output path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "run the system open or closed loop",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().Float64Var(&dt, "dt", 0.01, "sample time")
	simulateCmd.Flags().Float64Var(&duration, "time", 10.0, "duration")
	simulateCmd.Flags().StringVar(&mode, "mode", "open", "open or closed")
	simulateCmd.Flags().StringVar(&certFile, "cert", "", "certificate file (closed loop)")
	simulateCmd.Flags().IntVar(&plotState, "plot", 0, "state index to plot")
	simulateCmd.Flags().BoolVar(&estimateRate, "estimate-rate", false, "estimate empirical contraction rate")
	simulateCmd.Flags().BoolVar(&noSave, "no-save", false, "skip persisting the run")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in system presets",
		RunE:  listPresets,
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	rootCmd.AddCommand(jacobianCmd, scanCmd, analyzeCmd, simulateCmd, presetsCmd, runsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*system.Config, error) {
	if configFile != "" {
		return system.Load(configFile)
	}
	if presetName != "" {
		return system.Preset(presetName)
	}
	return system.DefaultConfig(), nil
}

func newSession() (*session.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return session.New(cfg, symexpr.New())
}

func runJacobian(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	jac := sess.Jacobian()
	names := sess.Config().BindingNames()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprint(w, "df/dx")
	for _, name := range names {
		fmt.Fprintf(w, "\t%s", name)
	}
	fmt.Fprintln(w)
	for i, row := range jac.Entries {
		fmt.Fprintf(w, "f%d", i+1)
		for _, entry := range row {
			fmt.Fprintf(w, "\t%s", entry)
		}
		fmt.Fprintln(w)
	}
	w.Flush()

	if jac.Defaults > 0 {
		fmt.Printf("\n%d entries degraded to 0\n", jac.Defaults)
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	start := time.Now()
	result, err := sess.Scan(cmd.Context(), gridSize)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("Stability scan (%s)\n", sess.Config().Name)
	fmt.Printf("  grid points:  %d (%.2fms)\n", result.GridPoints, float64(elapsed.Microseconds())/1000)
	fmt.Printf("  Re(eig):      [%.6f, %.6f]\n", result.MinReal, result.MaxReal)
	fmt.Printf("  Im(eig):      [%.6f, %.6f]\n", result.MinImag, result.MaxImag)
	if result.EvalDefaults > 0 || result.EigenDefaults > 0 {
		fmt.Printf("  degraded:     %d eval defaults, %d eigen defaults\n",
			result.EvalDefaults, result.EigenDefaults)
	}
	if result.MaxReal < 0 {
		fmt.Println("  all sampled linearizations are Hurwitz")
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), solveTimeout)
	defer cancel()

	cert, err := sess.Analyze(ctx, lmi.NewClient(solverURL))
	if err != nil {
		return err
	}

	if !cert.Feasible {
		fmt.Println("LMI infeasible (or solver unavailable)")
		return nil
	}
	fmt.Printf("LMI feasible: rho = %.6f\n", cert.Rho)
	fmt.Printf("  eig(W):  [%.6f, %.6f]\n", cert.MinEigW, cert.MaxEigW)
	if cert.MinEigH != nil && cert.MaxEigH != nil {
		fmt.Printf("  eig(H):  [%.6f, %.6f]\n", *cert.MinEigH, *cert.MaxEigH)
	}
	if cert.SolverInfo != nil {
		fmt.Printf("  solver:  %s (%s)\n", cert.SolverInfo.SolverName, cert.SolverInfo.Status)
	}
	if err := lmi.SaveCertificate(certOut, cert); err != nil {
		return err
	}
	fmt.Printf("certificate written to %s\n", certOut)
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	runMode, err := session.ParseMode(mode)
	if err != nil {
		return err
	}
	if certFile != "" {
		cert, err := lmi.LoadCertificate(certFile)
		if err != nil {
			return err
		}
		if err := sess.SetCertificate(cert); err != nil {
			return err
		}
	}

	simCfg := sim.Config{Dt: dt, Duration: duration}
	result, err := sess.Simulate(cmd.Context(), runMode, simCfg)
	if err != nil {
		return err
	}

	cfg := sess.Config()
	if plotState >= 0 && plotState < cfg.N() {
		series := result.StateSeries(plotState)
		fmt.Println(asciigraph.Plot(series,
			asciigraph.Height(12),
			asciigraph.Caption(fmt.Sprintf("%s (%s loop)", cfg.BindingName(plotState), runMode)),
		))
	}

	runMetrics := metrics.Summarize(result, cfg.EquilibriumState(), dt)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "points\t%d\n", len(result.Points))
	fmt.Fprintf(w, "control effort\t%.6f\n", runMetrics["control_effort"])
	fmt.Fprintf(w, "convergence\t%.6f\n", runMetrics["convergence"])
	fmt.Fprintf(w, "peak state\t%.6f\n", runMetrics["peak_state"])
	w.Flush()

	if estimateRate {
		factory, err := sess.SimulatorFactory(runMode)
		if err != nil {
			return err
		}
		rate, err := analysis.ContractionRate(cmd.Context(), factory, cfg.InitialState(), simCfg, 1e-6)
		if err != nil {
			return err
		}
		fmt.Printf("empirical contraction rate: %.6f\n", rate)
	}

	if !noSave {
		st := store.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg.Name, string(runMode), simCfg, result, runMetrics)
		if err != nil {
			return err
		}
		fmt.Printf("saved run %s\n", runID)
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tSTATES\tINPUTS\tFIELD")
	for _, name := range system.PresetNames() {
		cfg, err := system.Preset(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%v\n", name, cfg.N(), cfg.M(), cfg.F)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := store.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no stored runs")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tDT\tTIME\tPOINTS\tCONVERGENCE")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%d\t%.4f\n",
			r.ID, r.Mode, r.Dt, r.Duration, r.Points, r.Metrics["convergence"])
	}
	return w.Flush()
}
