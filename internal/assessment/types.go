// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assessment

import "encoding/json"

// =============================================================================
// ENVELOPE
// =============================================================================

// Envelope is the common response wrapper of every call.
type Envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Code      string          `json:"code,omitempty"`
	Completed bool            `json:"completed,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Failure codes reported in Envelope.Code.
const (
	CodeUserBanned           = "USER_BANNED"
	CodeTestAlreadyCompleted = "TEST_ALREADY_COMPLETED"
	CodeInvalidOTP           = "INVALID_OTP"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeNotAuthorized        = "NOT_AUTHORIZED"
	CodeOutOfOrder           = "OUT_OF_ORDER"
)

// =============================================================================
// REQUESTS
// =============================================================================

// ValidateTokenRequest is the body of validate-encrypted-email.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// EmailRequest is the body of check-test-status, current-question and ban-user.
type EmailRequest struct {
	Email string `json:"email"`
}

// SendOTPRequest is the body of send-otp.
type SendOTPRequest struct {
	Email       string `json:"email"`
	StudentName string `json:"student_name"`
}

// VerifyOTPRequest is the body of verify-otp.
type VerifyOTPRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	StudentName string `json:"student_name"`
}

// ResponseRequest is the body of responses.
type ResponseRequest struct {
	Email          string `json:"email"`
	QuestionID     int    `json:"question_id"`
	SelectedAnswer int    `json:"selected_answer"`
	TimeTaken      int    `json:"time_taken"`
}

// =============================================================================
// PAYLOADS
// =============================================================================

// ValidateTokenData carries the decrypted identifier.
type ValidateTokenData struct {
	Email string `json:"email"`
}

// TestStatus is the data of check-test-status.
type TestStatus struct {
	BanStatus     bool `json:"ban_status"`
	TestCompleted bool `json:"test_completed"`
}

// Question is one multiple-choice item.
type Question struct {
	ID          int      `json:"id"`
	Prompt      string   `json:"question"`
	Description string   `json:"description,omitempty"`
	Options     []string `json:"options"`
	SectionID   int      `json:"section_id"`
}

// Section is a timed group of questions.
type Section struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	TimeLimit      int    `json:"time_limit"`
	TotalQuestions int    `json:"total_questions"`
}

// Timing is the server-side clock snapshot.
type Timing struct {
	SectionTimeRemaining int  `json:"section_time_remaining"`
	TestTimeRemaining    int  `json:"test_time_remaining"`
	SectionTimeUp        bool `json:"is_section_time_up"`
	TestTimeUp           bool `json:"is_test_time_up"`
}

// Progress is the participant's position in the test.
type Progress struct {
	CurrentSectionID        int     `json:"current_section_id"`
	CurrentQuestionNumber   int     `json:"current_question_number"`
	TotalQuestionsInSection int     `json:"total_questions_in_section"`
	CompletionPercentage    float64 `json:"completion_percentage"`
	TotalScore              int     `json:"total_score"`
	TotalSections           int     `json:"total_sections"`
}

// CurrentQuestion is the data of current-question.
type CurrentQuestion struct {
	Question Question `json:"question"`
	Section  Section  `json:"section"`
	Timing   Timing   `json:"timing"`
	Progress Progress `json:"progress"`
}

// SessionProgress is returned after a response is recorded.
type SessionProgress struct {
	TestCompleted    bool `json:"test_completed"`
	CurrentSectionID int  `json:"current_section_id"`
}

// ResponseData is the data of responses.
type ResponseData struct {
	SessionProgress SessionProgress `json:"session_progress"`
}
