package cockpit

// EpochInfo carries the per-epoch training statistics recorded next to
// the per-step quantity outputs.
type EpochInfo struct {
	Epoch         int     `json:"epoch"`
	TrainLoss     float64 `json:"train_loss"`
	ValidLoss     float64 `json:"valid_loss"`
	TestLoss      float64 `json:"test_loss"`
	TrainAccuracy float64 `json:"train_accuracy"`
	ValidAccuracy float64 `json:"valid_accuracy"`
	TestAccuracy  float64 `json:"test_accuracy"`
	LearningRate  float64 `json:"learning_rate"`
}

type epochRecord struct {
	step int
	info EpochInfo
}

// Log records epoch-level statistics at the given global step. Unlike
// quantity outputs these come straight from the training loop; they end
// up in their own section of the written log.
func (c *Cockpit) Log(step int, info EpochInfo) {
	c.epochLogs = append(c.epochLogs, epochRecord{step: step, info: info})
}
