package api

// Request and response shapes for the HTTP surface. Amounts travel as
// float64 and dates as "YYYY-MM-DD" strings; everything is converted to
// decimal / apr.Date at the handler boundary.

type TermsRequest struct {
	Principal          float64 `json:"principal"`
	AnnualInterestRate float64 `json:"annual_interest_rate"`
	Frequency          string  `json:"frequency"`
	DisbursementDate   string  `json:"disbursement_date"`
	FirstPaymentDate   string  `json:"first_payment_date"`
	EndDate            string  `json:"end_date,omitempty"`
}

type QuoteRequest struct {
	TermsRequest
}

type QuoteResponse struct {
	Payment      float64    `json:"payment"`
	APR          float64    `json:"apr"`
	PeriodicRate float64    `json:"periodic_rate"`
	Iterations   int        `json:"iterations"`
	Converged    bool       `json:"converged"`
	Schedule     []EntryDTO `json:"schedule"`
}

type CreateLoanRequest struct {
	LoanID string `json:"loan_id"`
	TermsRequest
}

type ScheduleResponse struct {
	LoanID    string     `json:"loan_id"`
	Frequency string     `json:"frequency"`
	Payment   float64    `json:"payment"`
	Entries   []EntryDTO `json:"entries"`
}

type EntryDTO struct {
	Num                int     `json:"num"`
	DueDate            string  `json:"due_date"`
	Days               int     `json:"days"`
	DuePayment         float64 `json:"due_payment"`
	NewInterest        float64 `json:"new_interest"`
	MaturedInterest    float64 `json:"matured_interest"`
	Fees               float64 `json:"fees"`
	PaidInterest       float64 `json:"paid_interest"`
	UnpaidInterest     float64 `json:"unpaid_interest"`
	PaidFees           float64 `json:"paid_fees"`
	UnpaidFees         float64 `json:"unpaid_fees"`
	PrincipalReduction float64 `json:"principal_reduction"`
	Balance            float64 `json:"balance"`
	PaidDate           string  `json:"paid_date,omitempty"`
	AmountPaid         float64 `json:"amount_paid"`
}

type PaymentRequest struct {
	DueDate string  `json:"due_date"`
	Amount  float64 `json:"amount"`
}

type AccrueRequest struct {
	AsOf string `json:"as_of"`
}

type FrequencyChangeRequest struct {
	EffectiveDate string `json:"effective_date"`
	Frequency     string `json:"frequency"`
}

type FrequencyChangeResponse struct {
	Payment  float64          `json:"payment"`
	Schedule ScheduleResponse `json:"schedule"`
}

type FrequencyDTO struct {
	Code           string `json:"code"`
	PeriodsPerYear int    `json:"periods_per_year"`
	TotalPeriods   int    `json:"total_periods"`
}

type DueDatesRequest struct {
	StartDate           string `json:"start_date"`
	Frequency           string `json:"frequency"`
	SkipNonBusinessDays bool   `json:"skip_non_business_days"`
	EndDate             string `json:"end_date,omitempty"`
}

type DueDatesResponse struct {
	Dates []string `json:"dates"`
}

type HolidayRequest struct {
	ID   string `json:"id,omitempty"`
	Date string `json:"date"`
	Name string `json:"name"`
}

type HolidayDTO struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
