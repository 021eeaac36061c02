// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package inproc

import (
	"context"
	"sort"
	"time"

	"github.com/AleutianAI/NutriCore/services/nutrition/capability"
	"github.com/AleutianAI/NutriCore/services/nutrition/datatypes"
)

// =============================================================================
// Supplement Recommender
// =============================================================================

// catalog maps a deficient nutrient to its supplement item.
var catalog = map[string]datatypes.Recommendation{
	"vitamin_d": {
		"supplement_id": "vd001",
		"name":          "Vitamin D3",
		"dosage":        "2000 IU",
		"frequency":     "daily",
	},
	"iron": {
		"supplement_id": "fe001",
		"name":          "Iron Bisglycinate",
		"dosage":        "25 mg",
		"frequency":     "daily",
	},
	"vitamin_b12": {
		"supplement_id": "b12001",
		"name":          "Methylcobalamin B12",
		"dosage":        "1000 mcg",
		"frequency":     "daily",
	},
	"magnesium": {
		"supplement_id": "mg001",
		"name":          "Magnesium Glycinate",
		"dosage":        "400 mg",
		"frequency":     "daily",
	},
	"zinc": {
		"supplement_id": "zn001",
		"name":          "Zinc Picolinate",
		"dosage":        "15 mg",
		"frequency":     "daily",
	},
	"omega_3": {
		"supplement_id": "om001",
		"name":          "Omega-3 Fish Oil",
		"dosage":        "1000 mg",
		"frequency":     "twice daily",
	},
}

// Recommender implements capability.SupplementRecommender against the
// static supplement catalog.
type Recommender struct {
	component
	*roster

	clock func() time.Time
}

// NewRecommender creates a catalog recommender.
func NewRecommender() *Recommender {
	return NewRecommenderWithClock(time.Now)
}

// NewRecommenderWithClock injects a time source for deterministic tests.
func NewRecommenderWithClock(clock func() time.Time) *Recommender {
	return &Recommender{
		component: component{name: capability.NameRecommender},
		roster:    newRoster(),
		clock:     clock,
	}
}

// Recommend maps each deficiency in the analysis findings to its catalog
// item. Nutrients without a catalog entry are skipped; items are ordered
// by nutrient name for a stable output.
func (r *Recommender) Recommend(_ context.Context, _ string, result datatypes.AnalysisResult) (datatypes.RecommendationSet, error) {
	deficiencies, _ := result.Findings["deficiencies"].(map[string]float64)

	nutrients := make([]string, 0, len(deficiencies))
	for nutrient := range deficiencies {
		if _, ok := catalog[nutrient]; ok {
			nutrients = append(nutrients, nutrient)
		}
	}
	sort.Strings(nutrients)

	items := make([]datatypes.Recommendation, 0, len(nutrients))
	for _, nutrient := range nutrients {
		item := datatypes.Recommendation{"target_nutrient": nutrient}
		for k, v := range catalog[nutrient] {
			item[k] = v
		}
		items = append(items, item)
	}

	return datatypes.RecommendationSet{
		GeneratedAt: r.clock(),
		Items:       items,
	}, nil
}

var _ capability.SupplementRecommender = (*Recommender)(nil)
