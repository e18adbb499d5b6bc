package indicators

import (
	"ictrader/internal/errors"
	"ictrader/internal/models"
)

// OBV calculates On-Balance Volume, the running sum of signed volume.
type OBV struct{}

// NewOBV creates a new OBV indicator.
func NewOBV() *OBV {
	return &OBV{}
}

func (o *OBV) Name() string {
	return "OBV"
}

func (o *OBV) Period() int {
	return 2
}

func (o *OBV) Calculate(bars []models.Bar) ([]float64, error) {
	if len(bars) < 2 {
		return nil, errors.ErrInsufficientData
	}

	n := len(bars)
	result := make([]float64, n)
	for i := 1; i < n; i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			result[i] = result[i-1] + float64(bars[i].Volume)
		case bars[i].Close < bars[i-1].Close:
			result[i] = result[i-1] - float64(bars[i].Volume)
		default:
			result[i] = result[i-1]
		}
	}

	return result, nil
}
