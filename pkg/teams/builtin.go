package teams

import (
	"github.com/dukex/teamflow/pkg/insights"
	"github.com/dukex/teamflow/pkg/models"
)

func process(name string, priority models.Priority, frequency models.Frequency, kpi, description string) models.ProcessDefinition {
	return models.ProcessDefinition{
		Name:        name,
		Priority:    priority,
		Frequency:   frequency,
		KPIName:     kpi,
		Description: description,
	}
}

func ratio(name string, value float64) models.KPITarget {
	return models.KPITarget{Name: name, Kind: models.KPIKindRatio, CurrentValue: value, Min: 0, Max: 1, Unit: "ratio"}
}

func duration(name string, value, low, high float64, unit string) models.KPITarget {
	return models.KPITarget{Name: name, Kind: models.KPIKindDuration, CurrentValue: value, Min: low, Max: high, Unit: unit}
}

func template(kind string, impact models.Impact, saving float64, timeline, description string, actions ...string) insights.Template {
	return insights.Template{
		Type:                   kind,
		Impact:                 impact,
		Description:            description,
		PotentialSaving:        saving,
		ImplementationTimeline: timeline,
		KeyActions:             actions,
	}
}

const (
	high     = models.PriorityHigh
	medium   = models.PriorityMedium
	low      = models.PriorityLow
	critical = models.PriorityCritical
)

// Builtin returns the tables of every builtin active team.
func Builtin() []Definition {
	return []Definition{
		{
			Name:        "hr",
			Description: "Talent acquisition, performance and people development",
			Processes: []models.ProcessDefinition{
				process("recruitment", high, models.FrequencyContinuous, "time_to_hire", "Job posting and candidate screening"),
				process("performance_review", medium, models.FrequencyMonthly, "review_completion_rate", "Review cycles and evaluations"),
				process("training_programs", medium, models.FrequencyWeekly, "training_effectiveness", "Learning and development programs"),
				process("compensation_planning", low, models.FrequencyMonthly, "pay_equity_index", "Compensation structure design"),
			},
			KPIs: []models.KPITarget{
				duration("time_to_hire", 30, 10, 60, "days"),
				ratio("review_completion_rate", 0.85),
				ratio("training_effectiveness", 0.7),
				ratio("pay_equity_index", 0.9),
			},
			Insights: insights.Catalog{
				"recruitment": template("process_automation", models.ImpactHigh, 0.3, "2-4 weeks",
					"Automated candidate screening shortens the hiring funnel",
					"Score applications against role requirements", "Schedule interviews automatically"),
				"performance_review": template("engagement", models.ImpactMedium, 0.15, "1-2 months",
					"Continuous feedback raises review completion",
					"Introduce quarterly check-ins", "Share calibrated rating guides"),
				"training_programs": template("skill_development", models.ImpactMedium, 0.2, "1 quarter",
					"Personalized learning paths improve training outcomes",
					"Map skills gaps per role", "Recommend courses from gaps"),
			},
			Playbooks: map[string][]string{
				"attrition_risk": {"Schedule retention interviews", "Review compensation bands"},
			},
		},
		{
			Name:        "finance",
			Description: "Budgeting, forecasting and financial control",
			Processes: []models.ProcessDefinition{
				process("budget_planning", high, models.FrequencyMonthly, "budget_accuracy", "Departmental budget allocation"),
				process("expense_management", medium, models.FrequencyDaily, "expense_processing_time", "Expense approval and reimbursement"),
				process("financial_forecasting", high, models.FrequencyWeekly, "forecast_accuracy", "Revenue and cash forecasting"),
				process("invoice_processing", medium, models.FrequencyContinuous, "invoice_cycle_time", "Accounts payable processing"),
			},
			KPIs: []models.KPITarget{
				ratio("budget_accuracy", 0.85),
				duration("expense_processing_time", 5, 1, 14, "days"),
				ratio("forecast_accuracy", 0.8),
				duration("invoice_cycle_time", 7, 1, 30, "days"),
			},
			Insights: insights.Catalog{
				"budget_planning": template("cost_reduction", models.ImpactHigh, 0.12, "1 quarter",
					"Rolling forecasts tighten budget accuracy",
					"Move to monthly re-forecasting", "Flag variance above 5%"),
				"expense_management": template("process_automation", models.ImpactMedium, 0.25, "4-6 weeks",
					"Receipt capture and policy checks speed up approvals",
					"Automate policy validation", "Enable mobile receipt capture"),
				"invoice_processing": template("process_automation", models.ImpactHigh, 0.35, "6-8 weeks",
					"Three-way matching removes manual invoice handling",
					"Match invoices to purchase orders", "Route exceptions to approvers"),
			},
			Playbooks: map[string][]string{
				"fraud_risk": {"Freeze affected payments", "Open audit case"},
			},
		},
		{
			Name:        "operations",
			Description: "Production quality, capacity and process efficiency",
			Processes: []models.ProcessDefinition{
				process("quality_control", critical, models.FrequencyContinuous, "quality_score", "Inspection and defect tracking"),
				process("capacity_planning", high, models.FrequencyWeekly, "capacity_utilization", "Resource and capacity allocation"),
				process("process_improvement", medium, models.FrequencyMonthly, "cycle_time", "Lean process improvement"),
				process("maintenance_scheduling", medium, models.FrequencyDaily, "equipment_uptime", "Preventive maintenance"),
			},
			KPIs: []models.KPITarget{
				ratio("quality_score", 0.9),
				ratio("capacity_utilization", 0.75),
				duration("cycle_time", 48, 8, 120, "hours"),
				ratio("equipment_uptime", 0.92),
			},
			Insights: insights.Catalog{
				"quality_control": template("quality_improvement", models.ImpactHigh, 0.18, "1-2 months",
					"Statistical process control catches defects earlier",
					"Add control charts to critical stations", "Automate defect classification"),
				"capacity_planning": template("resource_optimization", models.ImpactMedium, 0.1, "1 month",
					"Demand-driven scheduling balances utilization",
					"Forecast demand per line", "Shift crews to bottlenecks"),
				"maintenance_scheduling": template("predictive_maintenance", models.ImpactHigh, 0.22, "1 quarter",
					"Predictive maintenance prevents unplanned downtime",
					"Instrument critical equipment", "Schedule work from failure predictions"),
			},
			Playbooks: map[string][]string{
				"equipment_failure": {"Dispatch maintenance crew", "Reroute production"},
			},
		},
		{
			Name:        "marketing",
			Description: "Campaigns, content and demand generation",
			Processes: []models.ProcessDefinition{
				process("campaign_management", high, models.FrequencyContinuous, "campaign_roi", "Multi-channel campaign execution"),
				process("content_strategy", medium, models.FrequencyWeekly, "content_engagement", "Content planning and publishing"),
				process("market_research", low, models.FrequencyMonthly, "research_coverage", "Market and competitor research"),
				process("lead_generation", high, models.FrequencyDaily, "lead_conversion_rate", "Inbound lead capture"),
			},
			KPIs: []models.KPITarget{
				ratio("campaign_roi", 0.6),
				ratio("content_engagement", 0.45),
				ratio("research_coverage", 0.7),
				ratio("lead_conversion_rate", 0.25),
			},
			Insights: insights.Catalog{
				"campaign_management": template("revenue_growth", models.ImpactHigh, 0.2, "4-6 weeks",
					"Budget reallocation towards top channels lifts ROI",
					"Shift spend to best performing channels", "Pause underperforming ads"),
				"lead_generation": template("conversion_optimization", models.ImpactHigh, 0.15, "1 month",
					"Lead scoring focuses follow-up on likely buyers",
					"Score leads on engagement", "Hand over hot leads within an hour"),
			},
		},
		{
			Name:        "sales",
			Description: "Pipeline management and revenue generation",
			Processes: []models.ProcessDefinition{
				process("lead_scoring", high, models.FrequencyContinuous, "win_rate", "Lead qualification and scoring"),
				process("pipeline_management", high, models.FrequencyDaily, "pipeline_velocity", "Opportunity tracking"),
				process("sales_forecasting", medium, models.FrequencyWeekly, "forecast_accuracy", "Revenue forecasting"),
				process("deal_closing", critical, models.FrequencyContinuous, "sales_cycle_length", "Negotiation and closing"),
			},
			KPIs: []models.KPITarget{
				ratio("win_rate", 0.3),
				ratio("pipeline_velocity", 0.55),
				ratio("forecast_accuracy", 0.75),
				duration("sales_cycle_length", 45, 7, 120, "days"),
			},
			Insights: insights.Catalog{
				"lead_scoring": template("conversion_optimization", models.ImpactHigh, 0.18, "3-4 weeks",
					"Predictive lead scoring raises win rates",
					"Train scoring on closed deals", "Route top leads to senior reps"),
				"deal_closing": template("revenue_growth", models.ImpactHigh, 0.12, "1-2 months",
					"Deal desk reviews shorten negotiation",
					"Standardize discount approvals", "Prepare contract templates"),
			},
			Playbooks: map[string][]string{
				"deal_risk": {"Engage executive sponsor", "Review pricing"},
			},
		},
		{
			Name:        "legal",
			Description: "Contracts, compliance and legal risk",
			Processes: []models.ProcessDefinition{
				process("contract_review", high, models.FrequencyContinuous, "contract_turnaround", "Contract drafting and review"),
				process("compliance_monitoring", critical, models.FrequencyDaily, "compliance_rate", "Regulatory compliance checks"),
				process("ip_management", low, models.FrequencyMonthly, "ip_coverage", "Intellectual property portfolio"),
				process("litigation_tracking", medium, models.FrequencyWeekly, "case_resolution_rate", "Dispute and litigation tracking"),
			},
			KPIs: []models.KPITarget{
				duration("contract_turnaround", 10, 1, 30, "days"),
				ratio("compliance_rate", 0.95),
				ratio("ip_coverage", 0.6),
				ratio("case_resolution_rate", 0.5),
			},
			Insights: insights.Catalog{
				"contract_review": template("process_automation", models.ImpactHigh, 0.4, "1-2 months",
					"Clause libraries and automated redlining speed up review",
					"Build a clause library", "Auto-flag non-standard terms"),
				"compliance_monitoring": template("risk_reduction", models.ImpactCritical, 0.1, "1 quarter",
					"Continuous control monitoring closes compliance gaps",
					"Map controls to regulations", "Alert on control failures"),
			},
			Playbooks: map[string][]string{
				"compliance_risk": {"Notify compliance officer", "Freeze affected process"},
			},
		},
		{
			Name:        "customer_success",
			Description: "Onboarding, support and retention",
			Processes: []models.ProcessDefinition{
				process("customer_onboarding", high, models.FrequencyContinuous, "time_to_value", "New customer onboarding"),
				process("support_ticketing", critical, models.FrequencyContinuous, "resolution_time", "Support ticket handling"),
				process("churn_prevention", high, models.FrequencyDaily, "retention_rate", "At-risk customer outreach"),
				process("health_scoring", medium, models.FrequencyWeekly, "customer_health", "Account health scoring"),
			},
			KPIs: []models.KPITarget{
				duration("time_to_value", 21, 3, 60, "days"),
				duration("resolution_time", 24, 1, 72, "hours"),
				ratio("retention_rate", 0.88),
				ratio("customer_health", 0.7),
			},
			Insights: insights.Catalog{
				"support_ticketing": template("service_improvement", models.ImpactHigh, 0.25, "1 month",
					"Ticket triage and self-service deflect repeat issues",
					"Auto-classify tickets", "Publish answers for top issues"),
				"churn_prevention": template("retention", models.ImpactCritical, 0.3, "6 weeks",
					"Early churn signals allow proactive outreach",
					"Alert on usage drops", "Run save playbooks for at-risk accounts"),
			},
			Playbooks: map[string][]string{
				"churn_risk": {"Assign success manager", "Offer account review"},
			},
		},
		{
			Name:        "healthcare",
			Description: "Patient flow, clinical quality and care coordination",
			Processes: []models.ProcessDefinition{
				process("patient_scheduling", high, models.FrequencyContinuous, "wait_time", "Appointment scheduling"),
				process("clinical_quality", critical, models.FrequencyDaily, "care_quality_score", "Clinical quality measures"),
				process("care_coordination", high, models.FrequencyDaily, "readmission_avoidance", "Care transitions"),
				process("staff_rostering", medium, models.FrequencyWeekly, "staff_coverage", "Clinical staff rostering"),
			},
			KPIs: []models.KPITarget{
				duration("wait_time", 14, 1, 45, "days"),
				ratio("care_quality_score", 0.9),
				ratio("readmission_avoidance", 0.85),
				ratio("staff_coverage", 0.9),
			},
			Insights: insights.Catalog{
				"patient_scheduling": template("access_improvement", models.ImpactHigh, 0.2, "1-2 months",
					"Demand-based slot allocation cuts waiting times",
					"Open slots by demand forecast", "Send automated reminders"),
				"care_coordination": template("quality_improvement", models.ImpactHigh, 0.15, "1 quarter",
					"Structured discharge follow-ups reduce readmissions",
					"Call patients within 48 hours of discharge", "Share care plans with primary care"),
			},
		},
		{
			Name:        "logistics",
			Description: "Shipping, routing and warehouse operations",
			Processes: []models.ProcessDefinition{
				process("route_optimization", high, models.FrequencyDaily, "on_time_delivery", "Delivery route planning"),
				process("inventory_management", high, models.FrequencyContinuous, "inventory_accuracy", "Stock levels and replenishment"),
				process("warehouse_operations", medium, models.FrequencyDaily, "fulfillment_time", "Picking, packing and shipping"),
				process("carrier_management", low, models.FrequencyMonthly, "carrier_performance", "Carrier selection and scorecards"),
			},
			KPIs: []models.KPITarget{
				ratio("on_time_delivery", 0.9),
				ratio("inventory_accuracy", 0.95),
				duration("fulfillment_time", 24, 2, 96, "hours"),
				ratio("carrier_performance", 0.8),
			},
			Insights: insights.Catalog{
				"route_optimization": template("cost_reduction", models.ImpactHigh, 0.15, "1 month",
					"Dynamic routing cuts mileage and late deliveries",
					"Re-plan routes with live traffic", "Consolidate partial loads"),
				"inventory_management": template("resource_optimization", models.ImpactMedium, 0.12, "6 weeks",
					"Demand-driven replenishment reduces stockouts",
					"Set reorder points from forecasts", "Review slow movers monthly"),
			},
			Playbooks: map[string][]string{
				"stockout": {"Expedite replenishment", "Notify affected customers"},
			},
		},
	}
}
