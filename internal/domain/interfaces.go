package domain

import (
	"context"
)

// TabularDataStore gives read-only access to the three historical row sets.
// Implementations construct typed records at the storage boundary.
type TabularDataStore interface {
	Patients(ctx context.Context) ([]Patient, error)
	Visits(ctx context.Context) ([]VisitRecord, error)
	VisitDrugs(ctx context.Context) ([]DrugAdministration, error)
}

// Classifier is the trained drug classifier capability. Implementations must
// be safe for concurrent read-only use. Probabilities returned by
// PredictProbabilities sum to 1 over Labels.
type Classifier interface {
	PredictProbabilities(ctx context.Context, features ClinicalFeatures) ([]LabelProbability, error)
	Labels() []string
}

// HistorySource answers per-patient history lookups against one snapshot.
type HistorySource interface {
	PatientHistory(patientID string) *PatientHistory
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
