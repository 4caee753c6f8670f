// Package evaluation grades agent runs with a language model.
//
// A TrajectoryEvaluator shows the model the question, the tools the agent
// could call, every step the agent took and its final answer, and asks for
// a 1 to 5 score. The score is normalized to [0, 1]:
//
//	ev := evaluation.NewTrajectoryEvaluator(llm, evaluation.WithTools(search))
//	res, err := ev.EvaluateAgentTrajectory(ctx, evaluation.Trajectory{
//		Input:      "What is the capital of France?",
//		Steps:      evaluation.StepsFromAgent(intermediateSteps),
//		Prediction: "Paris",
//	})
package evaluation
