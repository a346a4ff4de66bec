package validator

// Rescue mode: when the combined score lands below this threshold, bounded
// rescue bumps run before the overall score is finalized.
const rescueThreshold = 60.0

// Rescue floors.
const (
	structureRescueFloor   = 60.0
	compilationRescueFloor = 40.0
	strongStructureBar     = 70.0
)

// applyRescues mutates the dimension scores with bounded bumps and
// recomputes the overall score. Every rescue that fires is recorded in the
// suggestions so the lift is visible to callers.
func (v *Validator) applyRescues(artifact *Artifact, result *ValidationResult, weights Weights, bonus float64) {
	rescued := false

	structure := result.Dimensions[DimStructure]
	if structure.Score < structureRescueFloor && essentialFilesPresent(artifact) {
		structure.Score = structureRescueFloor
		result.Dimensions[DimStructure] = structure
		result.Suggestions = append(result.Suggestions,
			"rescue applied: essential files present, structure floor raised to 60")
		rescued = true
	}

	compilation := result.Dimensions[DimCompilation]
	if compilation.Score < compilationRescueFloor && result.Dimensions[DimStructure].Score >= strongStructureBar {
		compilation.Score = compilationRescueFloor
		result.Dimensions[DimCompilation] = compilation
		result.Suggestions = append(result.Suggestions,
			"rescue applied: build failed but structure is strong, compilation floor raised to 40")
		rescued = true
	}

	if rescued {
		result.Rescued = true
		result.OverallScore = combine(result.Dimensions, weights, bonus)
		v.logger.Infof("🛟 Rescue mode lifted artifact %s to overall=%.0f", artifact.Root, result.OverallScore)
	}
}

// Emergency result values: validation must be total, so an internal
// validator failure yields this fixed result rather than an error.
const emergencyScore = 30.0

func emergencyResult() *ValidationResult {
	dimensions := make(map[Dimension]DimensionResult, len(AllDimensions))
	for _, dim := range AllDimensions {
		dimensions[dim] = DimensionResult{
			Score:    emergencyScore,
			Findings: []string{"validator failed internally; emergency score assigned"},
		}
	}
	dimensions[DimCompilation] = DimensionResult{
		Score:    emergencyScore,
		Findings: []string{"build marked failed: validator could not complete"},
	}
	return &ValidationResult{
		OverallScore: emergencyScore,
		Dimensions:   dimensions,
		Suggestions: []string{
			"validation crashed internally; scores are emergency placeholders",
			"re-run validation after regenerating the artifact",
		},
	}
}

// recoverToEmergency converts a validator panic into the fixed emergency
// result. Installed by the exported entry points.
func (v *Validator) recoverToEmergency(result **ValidationResult) {
	if r := recover(); r != nil {
		v.logger.Errorf("❌ Validation panicked, returning emergency result: %v", r)
		*result = emergencyResult()
	}
}
