package wizard

// DefaultSteps is the apartment-search flow order.
var DefaultSteps = []string{"budget", "borough", "neighborhood", "map", "review"}

// Controller sequences a fixed, ordered list of named steps. Navigation is
// linear with an explicit jump; boundary moves and unknown jump targets are
// silent no-ops. The controller holds no domain validation of its own.
type Controller struct {
	steps   []string
	byName  map[string]int
	initial int
	index   int
}

func New(steps []string) *Controller {
	if len(steps) == 0 {
		steps = DefaultSteps
	}
	c := &Controller{
		steps:  make([]string, len(steps)),
		byName: make(map[string]int, len(steps)),
	}
	copy(c.steps, steps)
	for i, s := range c.steps {
		if _, ok := c.byName[s]; !ok {
			c.byName[s] = i
		}
	}
	return c
}

func (c *Controller) Current() string {
	return c.steps[c.index]
}

func (c *Controller) Index() int {
	return c.index
}

func (c *Controller) Steps() []string {
	out := make([]string, len(c.steps))
	copy(out, c.steps)
	return out
}

func (c *Controller) IsFirst() bool { return c.index == 0 }
func (c *Controller) IsLast() bool  { return c.index == len(c.steps)-1 }

// Next advances one step. Returns false (unchanged) on the terminal step.
func (c *Controller) Next() bool {
	if c.IsLast() {
		return false
	}
	c.index++
	return true
}

// Back moves one step back. Returns false (unchanged) on the first step.
func (c *Controller) Back() bool {
	if c.IsFirst() {
		return false
	}
	c.index--
	return true
}

// GoTo jumps directly to a known step by name. Unknown names are ignored.
// Jumps to any known step are allowed, forward included.
func (c *Controller) GoTo(step string) bool {
	i, ok := c.byName[step]
	if !ok {
		return false
	}
	c.index = i
	return true
}

// GoToIndex jumps by position; out-of-range indexes are ignored.
func (c *Controller) GoToIndex(i int) bool {
	if i < 0 || i >= len(c.steps) {
		return false
	}
	c.index = i
	return true
}

// Reset returns to the initial step.
func (c *Controller) Reset() {
	c.index = c.initial
}

// CanProceed defers gating to a caller-supplied predicate over the current
// step. A nil validator always allows.
func (c *Controller) CanProceed(validator func(step string) bool) bool {
	if validator == nil {
		return true
	}
	return validator(c.Current())
}
