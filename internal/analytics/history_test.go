package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-reco-engine/internal/domain"
)

func visit(id, patient, diagnosis string, visitType domain.VisitType, day int) domain.VisitRecord {
	return domain.VisitRecord{
		VisitID:   id,
		PatientID: patient,
		Diagnosis: diagnosis,
		VisitType: visitType,
		VisitDate: baseDate.AddDate(0, 0, day),
	}
}

func TestWorkedAndFailedDrugs(t *testing.T) {
	records := []domain.ClinicalRecord{
		record("URTI", "A", domain.OutcomeCured, withRecovery(3)),
		record("URTI", "A", domain.OutcomeCured, withRecovery(4)),
		record("URTI", "C", domain.OutcomeCured, withRecovery(2)),
		record("URTI", "D", domain.OutcomeCured, withRecovery(5)),
		record("URTI", "B", domain.OutcomeNoChange),
		record("URTI", "B", domain.OutcomeSideEffects),
		record("URTI", "E", domain.OutcomeWorsened),
		record("URTI", "F", domain.OutcomeImproved),
		record("URTI", "A", domain.OutcomeCured, withPatient("P-2")),
	}

	worked := WorkedDrugs(records, "P-1")
	require.Len(t, worked, 3)
	assert.Equal(t, "A", worked[0].DrugName)
	assert.Equal(t, 2, worked[0].SuccessCount)
	assert.Equal(t, 3.5, *worked[0].AvgRecovery)
	assert.Equal(t, "C", worked[1].DrugName, "equal counts order by faster recovery")
	assert.Equal(t, "D", worked[2].DrugName)

	failed := FailedDrugs(records, "P-1")
	require.Len(t, failed, 2)
	assert.Equal(t, domain.DrugFailure{DrugName: "B", FailCount: 2}, failed[0])
	assert.Equal(t, domain.DrugFailure{DrugName: "E", FailCount: 1}, failed[1])

	assert.Empty(t, WorkedDrugs(records, "P-404"))
	assert.NotNil(t, FailedDrugs(records, "P-404"))
}

func TestRecurrenceTimeline(t *testing.T) {
	visits := []domain.VisitRecord{
		visit("v3", "P-1", "URTI", domain.VisitNewCase, 40),
		visit("v1", "P-1", "URTI", domain.VisitNewCase, 0),
		visit("v2", "P-1", "URTI", domain.VisitFollowUp, 5),
		visit("v4", "P-1", "URTI", domain.VisitNewCase, 60),
		visit("v5", "P-1", "Asthma", domain.VisitNewCase, 10),
		visit("v6", "P-2", "URTI", domain.VisitNewCase, 1),
	}

	timeline := RecurrenceTimeline(visits, "P-1")

	require.Len(t, timeline, 4)
	assert.Equal(t, "Asthma", timeline[0].Diagnosis)
	assert.Nil(t, timeline[0].DaysSinceLast)
	assert.Equal(t, 1, timeline[0].EpisodeNo)

	assert.Equal(t, []string{"v1", "v3", "v4"}, []string{timeline[1].VisitID, timeline[2].VisitID, timeline[3].VisitID})
	assert.Nil(t, timeline[1].DaysSinceLast)
	assert.Equal(t, 40, *timeline[2].DaysSinceLast)
	assert.Equal(t, 20, *timeline[3].DaysSinceLast)

	for i := 1; i < len(timeline); i++ {
		if timeline[i].Diagnosis == timeline[i-1].Diagnosis {
			assert.Equal(t, timeline[i-1].EpisodeNo+1, timeline[i].EpisodeNo)
			assert.False(t, timeline[i].VisitDate.Before(timeline[i-1].VisitDate))
		} else {
			assert.Equal(t, 1, timeline[i].EpisodeNo)
		}
	}
}

func TestSummarizeRecurrence(t *testing.T) {
	visits := []domain.VisitRecord{
		visit("v1", "P-1", "URTI", domain.VisitNewCase, 0),
		visit("v2", "P-1", "URTI", domain.VisitNewCase, 30),
		visit("v3", "P-1", "URTI", domain.VisitNewCase, 45),
		visit("v4", "P-1", "Otitis", domain.VisitNewCase, 0),
		visit("v5", "P-1", "Otitis", domain.VisitNewCase, 10),
		visit("v6", "P-1", "Asthma", domain.VisitNewCase, 3),
	}

	summary := SummarizeRecurrence(RecurrenceTimeline(visits, "P-1"))

	require.Len(t, summary, 2, "single-episode diagnoses have no recurrence")
	assert.Equal(t, domain.RecurrenceSummary{Diagnosis: "URTI", RecurrenceCount: 2, AvgDaysBetween: 22.5, MinDaysBetween: 15}, summary[0])
	assert.Equal(t, domain.RecurrenceSummary{Diagnosis: "Otitis", RecurrenceCount: 1, AvgDaysBetween: 10, MinDaysBetween: 10}, summary[1])
}

func TestBuildPatientHistoryEmpty(t *testing.T) {
	h := BuildPatientHistory("P-9", nil, nil)

	require.NotNil(t, h)
	assert.Equal(t, "P-9", h.PatientID)
	assert.NotNil(t, h.Worked)
	assert.NotNil(t, h.Failed)
	assert.NotNil(t, h.Timeline)
	assert.NotNil(t, h.Recurrence)
	assert.Equal(t, 0, h.RecurrenceCount("URTI"))
}
