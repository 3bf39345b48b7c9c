package dashboard

import (
	"context"
	"sort"

	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/auth"
)

const (
	topDiagnosesLimit = 5
	recentLimit       = 10
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Stats(ctx context.Context, actor auth.Principal) (*Stats, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("dashboard is admin only")
	}
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, err
	}
	diagnoses, err := s.repo.Diagnoses(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalPatients:     counts.Patients,
		TotalDoctors:      counts.Doctors,
		TotalAppointments: counts.Appointments,
		PendingCount:      counts.Pending,
		CompletedCount:    counts.Completed,
		TotalRecords:      counts.Records,
		TopDiagnoses:      topDiagnoses(diagnoses, topDiagnosesLimit),
	}, nil
}

func (s *Service) RecentActivity(ctx context.Context, actor auth.Principal) (*RecentActivity, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("dashboard is admin only")
	}
	appts, err := s.repo.RecentAppointments(ctx, recentLimit)
	if err != nil {
		return nil, err
	}
	recs, err := s.repo.RecentRecords(ctx, recentLimit)
	if err != nil {
		return nil, err
	}
	return &RecentActivity{Appointments: appts, Records: recs}, nil
}

// topDiagnoses ranks diagnoses by exact-text frequency. Ties keep the
// diagnosis that appeared first in creation order; diagnoses must
// therefore arrive in that order.
func topDiagnoses(diagnoses []string, limit int) []DiagnosisCount {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	for i, d := range diagnoses {
		if _, ok := counts[d]; !ok {
			firstSeen[d] = i
		}
		counts[d]++
	}

	ranked := make([]DiagnosisCount, 0, len(counts))
	for d, n := range counts {
		ranked = append(ranked, DiagnosisCount{Diagnosis: d, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return firstSeen[ranked[i].Diagnosis] < firstSeen[ranked[j].Diagnosis]
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
