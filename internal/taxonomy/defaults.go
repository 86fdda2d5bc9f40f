package taxonomy

// DefaultCatalog mirrors the CRM's built-in signal table so the daemon can run
// without a catalog file. Weights are pre-decay base values.
func DefaultCatalog() *Registry {
	entries := []Entry{
		{SignalType: "funding_round", Category: GrowthExpansion, BaseWeight: 90, HalfLifeDays: 30, MaxAgeDays: 365, MinValue: 10},
		{SignalType: "office_expansion", Category: GrowthExpansion, BaseWeight: 70, HalfLifeDays: 21, MaxAgeDays: 180, MinValue: 5},
		{SignalType: "hiring_surge", Category: GrowthExpansion, BaseWeight: 60, HalfLifeDays: 14, MaxAgeDays: 120, MinValue: 0},
		{SignalType: "sustainability_report", Category: Sustainability, BaseWeight: 40, HalfLifeDays: 45, MaxAgeDays: 365, MinValue: 5},
		{SignalType: "green_certification", Category: Sustainability, BaseWeight: 50, HalfLifeDays: 60, MaxAgeDays: 365, MinValue: 10},
		{SignalType: "workplace_award", Category: WorkplaceExperience, BaseWeight: 45, HalfLifeDays: 30, MaxAgeDays: 180, MinValue: 5},
		{SignalType: "office_redesign", Category: WorkplaceExperience, BaseWeight: 65, HalfLifeDays: 21, MaxAgeDays: 150, MinValue: 0},
		{SignalType: "wellbeing_program", Category: EmployeeWellbeing, BaseWeight: 55, HalfLifeDays: 30, MaxAgeDays: 180, MinValue: 5},
		{SignalType: "pricing_page_visit", Category: DirectEngagement, BaseWeight: 80, HalfLifeDays: 3, MaxAgeDays: 30, MinValue: 0},
		{SignalType: "demo_request", Category: DirectEngagement, BaseWeight: 95, HalfLifeDays: 7, MaxAgeDays: 60, MinValue: 10},
		{SignalType: "content_download", Category: DirectEngagement, BaseWeight: 50, HalfLifeDays: 5, MaxAgeDays: 45, MinValue: 0},
		{SignalType: "email_reply", Category: DirectEngagement, BaseWeight: 70, HalfLifeDays: 5, MaxAgeDays: 45, MinValue: 0},
		{SignalType: "webinar_attendance", Category: DirectEngagement, BaseWeight: 60, HalfLifeDays: 7, MaxAgeDays: 60, MinValue: 0},
		{SignalType: "lease_renewal_window", Category: Operational, BaseWeight: 85, HalfLifeDays: 60, MaxAgeDays: 365, MinValue: 15},
		{SignalType: "relocation_announcement", Category: Operational, BaseWeight: 75, HalfLifeDays: 30, MaxAgeDays: 240, MinValue: 10},
		{SignalType: "tech_stack_change", Category: Technology, BaseWeight: 35, HalfLifeDays: 21, MaxAgeDays: 150, MinValue: 0},
		{SignalType: "champion_job_change", Category: Relationship, BaseWeight: 65, HalfLifeDays: 14, MaxAgeDays: 120, MinValue: 5},
		{SignalType: "referral_received", Category: Relationship, BaseWeight: 85, HalfLifeDays: 21, MaxAgeDays: 180, MinValue: 10},
	}
	r, err := New(entries)
	if err != nil {
		// The built-in catalog is validated by tests; a failure here is a bug.
		panic("default taxonomy invalid: " + err.Error())
	}
	return r
}
