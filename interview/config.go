package interview

import "time"

// Config of interviews.
type Config struct {
	// BufferSize is the number of answers buffered between a participant and
	// the coordinator. A participant blocks once the buffer is full.
	BufferSize int `mapstructure:"buffer-size"`
	// AnswerTimeout bounds waiting for the next answer while a scan is running.
	AnswerTimeout time.Duration `mapstructure:"answer-timeout"`
	// MaxRounds bounds the number of refinement rounds of a single interview.
	MaxRounds int `mapstructure:"max-rounds"`
	// Parallelism is the number of questions of a round asked concurrently.
	Parallelism int `mapstructure:"parallelism"`
}

// DefaultConfig for interviews.
func DefaultConfig() Config {
	return Config{
		BufferSize:    100,
		AnswerTimeout: 30 * time.Second,
		MaxRounds:     32,
		Parallelism:   4,
	}
}
