package nl2sql

// fewShotExamples prime the model with the expected JSON reply shape. They
// are injected as prior user/assistant turns when few-shot mode is enabled.
var fewShotExamples = []struct {
	Question string
	Reply    string
}{
	{
		Question: "Which students are taking course 341?",
		Reply:    `{"thoughts": "Join takes with students and filter on the course id.", "direct_response": "", "sql": "SELECT s.id, s.name FROM students s JOIN takes t ON s.id = t.student_id WHERE t.course_id = 341 LIMIT 50", "display_type": "response_table"}`,
	},
	{
		Question: "统计每个系的学生人数",
		Reply:    `{"thoughts": "按系分组统计学生数量。", "direct_response": "", "sql": "SELECT dept_name, COUNT(*) AS student_count FROM students GROUP BY dept_name LIMIT 50", "display_type": "response_bar_chart"}`,
	},
	{
		Question: "What can you do?",
		Reply:    `{"thoughts": "No query is needed for this question.", "direct_response": "I translate questions about your database into read-only SQL and run them for you. Ask about the data, or type help for commands.", "sql": "", "display_type": ""}`,
	},
}
