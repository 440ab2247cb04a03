package learner

type config struct {
	fitIntercept *bool
}

// Option configures a built-in learner.
type Option func(*config)

// WithIntercept sets whether the learner fits an intercept.
func WithIntercept(fit bool) Option {
	return func(c *config) {
		*c.fitIntercept = fit
	}
}
