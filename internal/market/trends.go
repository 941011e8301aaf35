package market

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/terra-clan/procure-sim/internal/models"
)

// AnalyzeTrends ticks every given category and aggregates the results
// into recommendations, opportunities, and risks via fixed decision
// rules, plus cross-category summary statistics.
func (s *Simulator) AnalyzeTrends(ctx context.Context, categories []string) (*models.TrendReport, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("at least one category is required")
	}

	report := &models.TrendReport{
		Trends:      make(map[string]*models.MarketData, len(categories)),
		GeneratedAt: s.now(),
	}

	demands := make([]float64, 0, len(categories))
	competitions := make([]float64, 0, len(categories))
	indices := make([]float64, 0, len(categories))

	for _, category := range categories {
		md, err := s.Tick(ctx, category)
		if err != nil {
			return nil, err
		}

		report.Trends[category] = md
		demands = append(demands, md.DemandLevel)
		competitions = append(competitions, md.CompetitionLevel)
		indices = append(indices, md.PriceIndex)

		switch {
		case md.DemandLevel > 70 && md.CompetitionLevel < 50:
			report.Recommendations = append(report.Recommendations, models.MarketRecommendation{
				Category:       category,
				Action:         "increase_inventory",
				ExpectedReturn: 25,
				Reason:         "high demand with light competition",
			})
		case md.DemandLevel < 30:
			report.Recommendations = append(report.Recommendations, models.MarketRecommendation{
				Category:       category,
				Action:         "reduce_inventory",
				ExpectedReturn: 10,
				Reason:         "demand too weak to justify held stock",
			})
		case md.CompetitionLevel > 70:
			report.Recommendations = append(report.Recommendations, models.MarketRecommendation{
				Category:       category,
				Action:         "price_competitively",
				ExpectedReturn: 15,
				Reason:         "crowded market rewards aggressive pricing",
			})
		}

		if md.DemandLevel > 80 {
			report.Opportunities = append(report.Opportunities,
				fmt.Sprintf("%s: demand surge, sell into strength", category))
		}
		if md.PriceIndex > 1.5 {
			report.Risks = append(report.Risks,
				fmt.Sprintf("%s: price index %.2f looks overheated", category, md.PriceIndex))
		}
		if md.PriceIndex < 0.7 {
			report.Risks = append(report.Risks,
				fmt.Sprintf("%s: depressed prices squeeze margins", category))
		}
	}

	report.Summary = models.TrendSummary{
		AvgDemand:      stat.Mean(demands, nil),
		AvgCompetition: stat.Mean(competitions, nil),
		AvgPriceIndex:  stat.Mean(indices, nil),
	}
	if len(demands) > 1 {
		report.Summary.DemandStdDev = stat.StdDev(demands, nil)
	}

	return report, nil
}
