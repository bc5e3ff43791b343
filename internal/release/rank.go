package release

// Update type categories as they appear in the source sheet.
const (
	UpdateTypeNewFeature  = "新功能"
	UpdateTypeEnhancement = "增强优化"
	UpdateTypeBugfix      = "故障修复"
	NoUpdateType          = "无更新类型"
)

// UnrankedPriority is assigned to modules and update types missing from a priority table.
const UnrankedPriority = 99

var updateTypeOrder = []string{UpdateTypeNewFeature, UpdateTypeEnhancement, UpdateTypeBugfix, NoUpdateType}

// DefaultModuleOrder returns the default display priority of product modules.
func DefaultModuleOrder() []string {
	return []string{"算力云", "大模型服务平台", "费用中心", "用户中心"}
}

// UpdateTypes returns the update types in display order.
func UpdateTypes() []string {
	return append([]string(nil), updateTypeOrder...)
}

// Ranker assigns sort priorities to modules and update types.
type Ranker struct {
	modules map[string]int
	types   map[string]int
}

// NewRanker builds a ranker from a module priority list. An empty list
// selects DefaultModuleOrder. Duplicate names keep their first position.
func NewRanker(moduleOrder []string) *Ranker {
	if len(moduleOrder) == 0 {
		moduleOrder = DefaultModuleOrder()
	}

	r := &Ranker{
		modules: make(map[string]int, len(moduleOrder)),
		types:   make(map[string]int, len(updateTypeOrder)),
	}

	for i, m := range moduleOrder {
		if _, ok := r.modules[m]; !ok {
			r.modules[m] = i
		}
	}

	for i, t := range updateTypeOrder {
		r.types[t] = i
	}

	return r
}

// ModuleRank returns the module's priority, or UnrankedPriority.
func (r *Ranker) ModuleRank(module string) int {
	if rank, ok := r.modules[module]; ok {
		return rank
	}

	return UnrankedPriority
}

// UpdateTypeRank returns the update type's priority, or UnrankedPriority.
func (r *Ranker) UpdateTypeRank(updateType string) int {
	if rank, ok := r.types[updateType]; ok {
		return rank
	}

	return UnrankedPriority
}

// NormalizeUpdateType maps an empty update type to NoUpdateType.
func NormalizeUpdateType(updateType string) string {
	if updateType == "" {
		return NoUpdateType
	}

	return updateType
}
