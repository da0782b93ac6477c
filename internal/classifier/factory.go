package classifier

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/drug-reco-engine/internal/domain"
)

// FromConfig builds the configured trained classifier. The frequency kind
// has no standalone model and returns nil: it is derived from each data
// snapshot instead.
func FromConfig(cfg domain.ClassifierConfig, logger *logrus.Logger) (domain.Classifier, string, error) {
	switch cfg.Kind {
	case KindLinear:
		m, err := LoadLinearModel(cfg.ModelPath)
		if err != nil {
			return nil, "", err
		}
		logger.WithFields(logrus.Fields{
			"model_path": cfg.ModelPath,
			"version":    m.Version(),
			"labels":     len(m.Labels()),
		}).Info("Loaded linear classifier model")
		return m, "linear:" + m.Version(), nil
	case KindRemote:
		c, err := NewRemoteClassifier(cfg.Remote, logger)
		if err != nil {
			return nil, "", err
		}
		return c, "remote:" + cfg.Remote.BaseURL, nil
	case KindFrequency, "":
		return nil, "", nil
	default:
		return nil, "", fmt.Errorf("unknown classifier kind %q", cfg.Kind)
	}
}
