package wire

// PlannerEvaluation is the evaluation policy document. Absent sections
// leave the matching term out of scoring.
type PlannerEvaluation struct {
	Effectors       *PlannerEffectors `json:"effectors,omitempty"`
	FieldEvaluators *FieldEvaluators  `json:"evaluators,omitempty"`
}

type PlannerEffectors struct {
	Opponent   *OpponentEffector   `json:"opponent_effector,omitempty"`
	ActionType *ActionTypeEffector `json:"action_type_effector,omitempty"`
	Teammate   *TeammateEffector   `json:"teammate_effector,omitempty"`
}

// OpponentEffector holds the two penalty curves. Values are indexed by
// metre (distance) or cycle (reach steps).
type OpponentEffector struct {
	ByDistance             []float64 `json:"negetive_effect_by_distance,omitempty"`
	ByDistanceFirstLayer   *bool     `json:"negetive_effect_by_distance_based_on_first_layer,omitempty"`
	ByReachSteps           []float64 `json:"negetive_effect_by_reach_steps,omitempty"`
	ByReachStepsFirstLayer *bool     `json:"negetive_effect_by_reach_steps_based_on_first_layer,omitempty"`
}

type ActionTypeEffector struct {
	DirectPass   *float64 `json:"direct_pass,omitempty"`
	LeadPass     *float64 `json:"lead_pass,omitempty"`
	ThroughPass  *float64 `json:"through_pass,omitempty"`
	ShortDribble *float64 `json:"short_dribble,omitempty"`
	LongDribble  *float64 `json:"long_dribble,omitempty"`
	Cross        *float64 `json:"cross,omitempty"`
	Hold         *float64 `json:"hold,omitempty"`
}

type TeammateEffector struct {
	Coefficients map[int]float64 `json:"coefficients"`
	FirstLayer   *bool           `json:"apply_based_on_first_layer,omitempty"`
}

type FieldEvaluators struct {
	Base   *BaseEvaluator   `json:"helios_field_evaluator,omitempty"`
	Matrix *MatrixEvaluator `json:"matrix_field_evaluator,omitempty"`
}

type BaseEvaluator struct {
	XCoefficient               *float64 `json:"x_coefficient,omitempty"`
	BallDistToGoalCoefficient  *float64 `json:"ball_dist_to_goal_coefficient,omitempty"`
	EffectiveMaxBallDistToGoal *float64 `json:"effective_max_ball_dist_to_goal,omitempty"`
}

// MatrixEvaluator is a grid of values indexed [x][y] over the pitch.
type MatrixEvaluator struct {
	Evals [][]float64 `json:"evals"`
}
