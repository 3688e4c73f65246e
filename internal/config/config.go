package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the forecasting core and its CLI.
// Every tunable numeric threshold of the selection algorithm lives here so
// there are no magic numbers buried in the services.
type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	Forecast    ForecastConfig  `mapstructure:"forecast"`
}

type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

type ForecastConfig struct {
	Assessor   AssessorConfig   `mapstructure:"assessor"`
	Prophet    ProphetConfig    `mapstructure:"prophet"`
	ARIMA      ARIMAConfig      `mapstructure:"arima"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Fallback   FallbackConfig   `mapstructure:"fallback"`
}

type AssessorConfig struct {
	// MinPoints is the minimum number of finite observations required before
	// any statistical assessment is attempted.
	MinPoints int `mapstructure:"min_points"`
	// MinAdvancedLength is the observation count below which only the
	// fallback moving average is recommended.
	MinAdvancedLength int `mapstructure:"min_advanced_length"`
	// LowVolatilityCV and HighVolatilityCV bound the coefficient-of-variation
	// classes: below low -> "low", above high -> "high", otherwise "medium".
	LowVolatilityCV  float64 `mapstructure:"low_volatility_cv"`
	HighVolatilityCV float64 `mapstructure:"high_volatility_cv"`
	// SeasonalityThreshold is the minimum autocorrelation a periodic peak
	// must reach to count as seasonality.
	SeasonalityThreshold float64 `mapstructure:"seasonality_threshold"`
	// CandidatePeriods are the seasonal periods checked explicitly, in
	// samples (weekly=7, biweekly=14, monthly=30, yearly=365 for daily data).
	CandidatePeriods []int `mapstructure:"candidate_periods"`
	// MinSeasonalPeriod is the smallest autocorrelation lag considered a
	// seasonal period.
	MinSeasonalPeriod int `mapstructure:"min_seasonal_period"`
	// TrendSmoothingPeriod is the EMA span applied before the trend
	// regression, to keep noise out of the slope estimate.
	TrendSmoothingPeriod int `mapstructure:"trend_smoothing_period"`
	// TrendStrengthThreshold is the minimum regression R-squared for a trend
	// to count as present.
	TrendStrengthThreshold float64 `mapstructure:"trend_strength_threshold"`
}

type ProphetConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// MinTrainPoints is the minimum number of observations the additive
	// model needs to fit.
	MinTrainPoints int `mapstructure:"min_train_points"`
	// WeeklyPeriodDays and YearlyPeriodDays define the seasonal components
	// the model may enable, expressed in days.
	WeeklyPeriodDays int `mapstructure:"weekly_period_days"`
	YearlyPeriodDays int `mapstructure:"yearly_period_days"`
	// MinCycles is how many full seasonal cycles the training window must
	// cover before a seasonal component is enabled.
	MinCycles int `mapstructure:"min_cycles"`
	// SeasonalityPriorScale controls seasonal component shrinkage per metric
	// type. Smaller values shrink harder toward zero.
	ProbabilityPriorScale float64 `mapstructure:"probability_prior_scale"`
	LoadPriorScale        float64 `mapstructure:"load_prior_scale"`
	GeneralPriorScale     float64 `mapstructure:"general_prior_scale"`
	// IntervalZ is the z-score used for the uncertainty interval width.
	IntervalZ float64 `mapstructure:"interval_z"`
}

type ARIMAConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// MinTrainPoints is the minimum number of observations the order search
	// needs.
	MinTrainPoints int `mapstructure:"min_train_points"`
	// MaxP, MaxD and MaxQ bound the (p,d,q) grid search.
	MaxP int `mapstructure:"max_p"`
	MaxD int `mapstructure:"max_d"`
	MaxQ int `mapstructure:"max_q"`
	// FailoverP/D/Q is the fixed order used when every grid candidate errors
	// out.
	FailoverP int `mapstructure:"failover_p"`
	FailoverD int `mapstructure:"failover_d"`
	FailoverQ int `mapstructure:"failover_q"`
	// IntervalZ is the z-score used for the confidence interval width.
	IntervalZ float64 `mapstructure:"interval_z"`
}

type EvaluationConfig struct {
	// TestFraction is the chronological share of points held out for
	// scoring, with at least MinTestPoints enforced.
	TestFraction  float64 `mapstructure:"test_fraction"`
	MinTestPoints int     `mapstructure:"min_test_points"`
	// TieEpsilon is the MAE distance within which two candidates count as
	// tied, falling through to the RMSE tie-break.
	TieEpsilon float64 `mapstructure:"tie_epsilon"`
	// HighConfidenceRatio and MediumConfidenceRatio translate the
	// best/runner-up MAE ratio into a confidence label.
	HighConfidenceRatio   float64 `mapstructure:"high_confidence_ratio"`
	MediumConfidenceRatio float64 `mapstructure:"medium_confidence_ratio"`
	// CVEnabled turns on rolling-origin cross-validation for training
	// windows of at least CVMinTrainPoints, averaged over CVFolds folds.
	CVEnabled        bool `mapstructure:"cv_enabled"`
	CVMinTrainPoints int  `mapstructure:"cv_min_train_points"`
	CVFolds          int  `mapstructure:"cv_folds"`
}

type FallbackConfig struct {
	// Window is the trailing window of the moving-average fallback.
	Window int `mapstructure:"window"`
	// IntervalZ is the z-score used for the uncertainty interval width.
	IntervalZ float64 `mapstructure:"interval_z"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.service_name", "gurukul-forecast")
	viper.SetDefault("telemetry.service_version", "1.0.0")

	viper.SetDefault("forecast.assessor.min_points", 2)
	viper.SetDefault("forecast.assessor.min_advanced_length", 14)
	viper.SetDefault("forecast.assessor.low_volatility_cv", 0.15)
	viper.SetDefault("forecast.assessor.high_volatility_cv", 0.5)
	viper.SetDefault("forecast.assessor.seasonality_threshold", 0.4)
	viper.SetDefault("forecast.assessor.candidate_periods", []int{7, 14, 30, 365})
	viper.SetDefault("forecast.assessor.min_seasonal_period", 4)
	viper.SetDefault("forecast.assessor.trend_smoothing_period", 5)
	viper.SetDefault("forecast.assessor.trend_strength_threshold", 0.3)

	viper.SetDefault("forecast.prophet.enabled", true)
	viper.SetDefault("forecast.prophet.min_train_points", 10)
	viper.SetDefault("forecast.prophet.weekly_period_days", 7)
	viper.SetDefault("forecast.prophet.yearly_period_days", 365)
	viper.SetDefault("forecast.prophet.min_cycles", 2)
	viper.SetDefault("forecast.prophet.probability_prior_scale", 0.5)
	viper.SetDefault("forecast.prophet.load_prior_scale", 10.0)
	viper.SetDefault("forecast.prophet.general_prior_scale", 1.0)
	viper.SetDefault("forecast.prophet.interval_z", 1.96)

	viper.SetDefault("forecast.arima.enabled", true)
	viper.SetDefault("forecast.arima.min_train_points", 10)
	viper.SetDefault("forecast.arima.max_p", 2)
	viper.SetDefault("forecast.arima.max_d", 1)
	viper.SetDefault("forecast.arima.max_q", 2)
	viper.SetDefault("forecast.arima.failover_p", 1)
	viper.SetDefault("forecast.arima.failover_d", 1)
	viper.SetDefault("forecast.arima.failover_q", 1)
	viper.SetDefault("forecast.arima.interval_z", 1.96)

	viper.SetDefault("forecast.evaluation.test_fraction", 0.2)
	viper.SetDefault("forecast.evaluation.min_test_points", 1)
	viper.SetDefault("forecast.evaluation.tie_epsilon", 1e-6)
	viper.SetDefault("forecast.evaluation.high_confidence_ratio", 0.8)
	viper.SetDefault("forecast.evaluation.medium_confidence_ratio", 0.95)
	viper.SetDefault("forecast.evaluation.cv_enabled", true)
	viper.SetDefault("forecast.evaluation.cv_min_train_points", 40)
	viper.SetDefault("forecast.evaluation.cv_folds", 3)

	viper.SetDefault("forecast.fallback.window", 5)
	viper.SetDefault("forecast.fallback.interval_z", 1.645)
}

// Validate checks the cross-field constraints of the forecast configuration.
func (c *Config) Validate() error {
	a := c.Forecast.Assessor
	if a.MinPoints < 2 {
		return fmt.Errorf("assessor.min_points must be at least 2, got %d", a.MinPoints)
	}
	if a.LowVolatilityCV <= 0 || a.HighVolatilityCV <= a.LowVolatilityCV {
		return fmt.Errorf("volatility thresholds must satisfy 0 < low (%v) < high (%v)",
			a.LowVolatilityCV, a.HighVolatilityCV)
	}
	if a.SeasonalityThreshold <= 0 || a.SeasonalityThreshold >= 1 {
		return fmt.Errorf("assessor.seasonality_threshold must be in (0,1), got %v", a.SeasonalityThreshold)
	}

	e := c.Forecast.Evaluation
	if e.TestFraction <= 0 || e.TestFraction >= 1 {
		return fmt.Errorf("evaluation.test_fraction must be in (0,1), got %v", e.TestFraction)
	}
	if e.MinTestPoints < 1 {
		return fmt.Errorf("evaluation.min_test_points must be at least 1, got %d", e.MinTestPoints)
	}
	if e.HighConfidenceRatio <= 0 || e.MediumConfidenceRatio <= e.HighConfidenceRatio || e.MediumConfidenceRatio >= 1 {
		return fmt.Errorf("confidence ratios must satisfy 0 < high (%v) < medium (%v) < 1",
			e.HighConfidenceRatio, e.MediumConfidenceRatio)
	}

	ar := c.Forecast.ARIMA
	if ar.MaxP < 0 || ar.MaxD < 0 || ar.MaxD > 2 || ar.MaxQ < 0 {
		return fmt.Errorf("arima order bounds out of range: max_p=%d max_d=%d max_q=%d", ar.MaxP, ar.MaxD, ar.MaxQ)
	}

	if c.Forecast.Fallback.Window < 1 {
		return fmt.Errorf("fallback.window must be at least 1, got %d", c.Forecast.Fallback.Window)
	}
	return nil
}

// Default returns the built-in configuration without touching the config file
// or the environment. Library consumers that do not want viper's ambient
// behavior use this as a starting point.
func Default() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Telemetry: TelemetryConfig{
			Enabled:        false,
			ServiceName:    "gurukul-forecast",
			ServiceVersion: "1.0.0",
		},
		Forecast: ForecastConfig{
			Assessor: AssessorConfig{
				MinPoints:              2,
				MinAdvancedLength:      14,
				LowVolatilityCV:        0.15,
				HighVolatilityCV:       0.5,
				SeasonalityThreshold:   0.4,
				CandidatePeriods:       []int{7, 14, 30, 365},
				MinSeasonalPeriod:      4,
				TrendSmoothingPeriod:   5,
				TrendStrengthThreshold: 0.3,
			},
			Prophet: ProphetConfig{
				Enabled:               true,
				MinTrainPoints:        10,
				WeeklyPeriodDays:      7,
				YearlyPeriodDays:      365,
				MinCycles:             2,
				ProbabilityPriorScale: 0.5,
				LoadPriorScale:        10.0,
				GeneralPriorScale:     1.0,
				IntervalZ:             1.96,
			},
			ARIMA: ARIMAConfig{
				Enabled:        true,
				MinTrainPoints: 10,
				MaxP:           2,
				MaxD:           1,
				MaxQ:           2,
				FailoverP:      1,
				FailoverD:      1,
				FailoverQ:      1,
				IntervalZ:      1.96,
			},
			Evaluation: EvaluationConfig{
				TestFraction:          0.2,
				MinTestPoints:         1,
				TieEpsilon:            1e-6,
				HighConfidenceRatio:   0.8,
				MediumConfidenceRatio: 0.95,
				CVEnabled:             true,
				CVMinTrainPoints:      40,
				CVFolds:               3,
			},
			Fallback: FallbackConfig{
				Window:    5,
				IntervalZ: 1.645,
			},
		},
	}
}
