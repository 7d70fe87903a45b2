package basin

import "github.com/couchcryptid/basin-health-service/internal/indicator"

// Indicator names of the fixed basin hierarchy. Other components look leaves
// up by these names.
const (
	RootName = "Freshwater Health"

	EcosystemVitality = "Ecosystem Vitality"
	WaterQuantity     = "Water Quantity"
	FlowDeviation     = "Deviation from Natural Flow"
	Groundwater       = "Groundwater Storage Depletion"
	WaterQualityGroup = "Water Quality"
	WaterQualityIndex = "Water Quality Index"
	BasinCondition    = "Drainage Basin Condition"
	BankModification  = "Bank Modification"
	FlowConnectivity  = "Flow Connectivity"
	LandCover         = "Land Cover Naturalness"
	Biodiversity      = "Biodiversity"
	SpeciesOfConcern  = "Species of Concern"
	InvasiveSpecies   = "Invasive and Nuisance Species"

	EcosystemServices     = "Ecosystem Services"
	Provisioning          = "Provisioning"
	WaterSupply           = "Water Supply Reliability"
	Biomass               = "Biomass for Consumption"
	RegulationSupport     = "Regulation and Support"
	SedimentRegulation    = "Sediment Regulation"
	QualityRegulation     = "Water Quality Regulation"
	DiseaseRegulation     = "Disease Regulation"
	FloodRegulation       = "Flood Regulation"
	Cultural              = "Cultural"
	ConservationAreas     = "Conservation Areas"
	Recreation            = "Recreation"
	GovernanceStakeholder = "Governance & Stakeholders"

	EnablingEnvironment    = "Enabling Environment"
	ResourceManagement     = "Water Resource Management"
	RightsToUse            = "Rights to Resource Use"
	IncentivesRegulations  = "Incentives and Regulations"
	FinancialCapacity      = "Financial Capacity"
	TechnicalCapacity      = "Technical Capacity"
	StakeholderEngagement  = "Stakeholder Engagement"
	InformationAccess      = "Information Access"
	DecisionMaking         = "Engagement in Decision-Making"
	VisionAdaptive         = "Vision and Adaptive Governance"
	StrategicPlanning      = "Strategic Planning"
	MonitoringLearning     = "Monitoring and Learning"
	Effectiveness          = "Effectiveness"
	Enforcement            = "Enforcement and Compliance"
	BenefitDistribution    = "Distribution of Benefits"
	WaterConflict          = "Water-Related Conflict"
)

// NewBasinTree builds the full hierarchy with normalized weights.
func NewBasinTree() *indicator.Indicator {
	root := indicator.NewComposite(RootName,
		indicator.NewComposite(EcosystemVitality,
			indicator.NewComposite(WaterQuantity,
				indicator.NewLeaf(FlowDeviation, indicator.NewFlowDeviation()),
				manual(Groundwater),
			),
			indicator.NewComposite(WaterQualityGroup,
				indicator.NewLeaf(WaterQualityIndex, indicator.NewWaterQuality()),
			),
			indicator.NewComposite(BasinCondition,
				manual(BankModification),
				manual(FlowConnectivity),
				indicator.NewLeaf(LandCover, indicator.NewLandCover()),
			),
			indicator.NewComposite(Biodiversity,
				manual(SpeciesOfConcern),
				manual(InvasiveSpecies),
			),
		),
		indicator.NewComposite(EcosystemServices,
			indicator.NewComposite(Provisioning,
				manual(WaterSupply),
				manual(Biomass),
			),
			indicator.NewComposite(RegulationSupport,
				manual(SedimentRegulation),
				manual(QualityRegulation),
				manual(DiseaseRegulation),
				manual(FloodRegulation),
			),
			indicator.NewComposite(Cultural,
				manual(ConservationAreas),
				manual(Recreation),
			),
		),
		newGovernance(),
	)
	root.NormalizeWeights()
	return root
}

// NewGovernanceTree builds the governance subtree on its own, normalized.
// It replaces the subtree of a live model when new survey data is imported.
func NewGovernanceTree() *indicator.Indicator {
	g := newGovernance()
	g.NormalizeWeights()
	return g
}

func newGovernance() *indicator.Indicator {
	return indicator.NewComposite(GovernanceStakeholder,
		indicator.NewComposite(EnablingEnvironment,
			survey(ResourceManagement),
			survey(RightsToUse),
			survey(IncentivesRegulations),
			survey(FinancialCapacity),
			survey(TechnicalCapacity),
		),
		indicator.NewComposite(StakeholderEngagement,
			survey(InformationAccess),
			survey(DecisionMaking),
		),
		indicator.NewComposite(VisionAdaptive,
			survey(StrategicPlanning),
			survey(MonitoringLearning),
		),
		indicator.NewComposite(Effectiveness,
			survey(Enforcement),
			survey(BenefitDistribution),
			survey(WaterConflict),
		),
	)
}

func manual(name string) *indicator.Indicator {
	return indicator.NewLeaf(name, indicator.NewManualEntry())
}

func survey(name string) *indicator.Indicator {
	return indicator.NewLeaf(name, indicator.NewGovernanceSurvey())
}
