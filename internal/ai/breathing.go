package ai

// BreathingExercise is a guided breathing pattern. Durations are seconds.
type BreathingExercise struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	InhaleDuration int    `json:"inhale_duration"`
	HoldDuration   int    `json:"hold_duration"`
	ExhaleDuration int    `json:"exhale_duration"`
	Cycles         int    `json:"cycles"`
}

var breathingExercises = []BreathingExercise{
	{
		Name: "4-7-8 Breathing",
		Description: "The 4-7-8 technique forces your mind and body to focus on regulating your breath, rather than replaying your worries. " +
			"Close your eyes and inhale through your nose for 4 seconds, hold your breath for 7 seconds, then exhale slowly through your mouth for 8 seconds.",
		InhaleDuration: 4,
		HoldDuration:   7,
		ExhaleDuration: 8,
		Cycles:         4,
	},
	{
		Name: "Box Breathing",
		Description: "Box breathing is a technique used to calm yourself down with a simple 4 second rotation of breathing in, " +
			"holding your breath, breathing out, holding your breath, and repeating.",
		InhaleDuration: 4,
		HoldDuration:   4,
		ExhaleDuration: 4,
		Cycles:         5,
	},
	{
		Name: "Deep Breathing",
		Description: "Deep breathing is a simple yet powerful relaxation technique. It's easy to learn, can be practiced almost anywhere, " +
			"and provides a quick way to reduce stress levels.",
		InhaleDuration: 5,
		HoldDuration:   0,
		ExhaleDuration: 5,
		Cycles:         10,
	},
}

// BreathingExercises returns a copy of the built-in exercises.
func BreathingExercises() []BreathingExercise {
	return append([]BreathingExercise(nil), breathingExercises...)
}
