package profiledoc

// Section names, in display order.
const (
	SectionIdentity        = "identity"
	SectionAudience        = "audience"
	SectionOffer           = "offer"
	SectionPositioning     = "positioning"
	SectionVoice           = "voice"
	SectionContentStrategy = "content_strategy"
	SectionAssets          = "assets"
	SectionConstraints     = "constraints"
	SectionSignals         = "signals"
	SectionExamples        = "examples"
	SectionCalendar        = "calendar"
)

// Sections lists every section a document carries.
var Sections = []string{
	SectionIdentity,
	SectionAudience,
	SectionOffer,
	SectionPositioning,
	SectionVoice,
	SectionContentStrategy,
	SectionAssets,
	SectionConstraints,
	SectionSignals,
	SectionExamples,
	SectionCalendar,
}

// Kind is the JSON shape a field is expected to hold.
type Kind int

const (
	KindString Kind = iota
	KindEnum
	KindBool
	KindStringList
	KindEnumList
	KindDayList
	KindHourList
	KindObjectList
)

// IsStringList reports whether values of this kind are lists of strings.
func (k Kind) IsStringList() bool {
	return k == KindStringList || k == KindEnumList || k == KindHourList
}

// IsList reports whether values of this kind are JSON arrays.
func (k Kind) IsList() bool {
	return k.IsStringList() || k == KindDayList || k == KindObjectList
}

// Field describes one field of a section.
type Field struct {
	Kind Kind
	// Enum holds the allowed values for KindEnum and KindEnumList.
	Enum []string
	// Item describes the keys of each element for KindObjectList.
	Item map[string]Field
}

var (
	postRefItem = map[string]Field{
		"url":         {Kind: KindString},
		"description": {Kind: KindString},
		"why":         {Kind: KindString},
	}

	schema = map[string]map[string]Field{
		SectionIdentity: {
			"headline":      {Kind: KindString},
			"industry":      {Kind: KindString},
			"level":         {Kind: KindString},
			"language":      {Kind: KindString},
			"location":      {Kind: KindString},
			"pronoun_style": {Kind: KindEnum, Enum: []string{"tu", "vous", "mixte"}},
		},
		SectionAudience: {
			"icp":        {Kind: KindString},
			"pains":      {Kind: KindStringList},
			"objections": {Kind: KindStringList},
			"maturity":   {Kind: KindEnum, Enum: []string{"débutant", "intermédiaire", "avancé", "expert"}},
		},
		SectionOffer: {
			"primary_offer": {Kind: KindString},
			"promise":       {Kind: KindString},
			"pricing_range": {Kind: KindString},
			"proof_points":  {Kind: KindStringList},
			"case_studies": {Kind: KindObjectList, Item: map[string]Field{
				"title":       {Kind: KindString},
				"description": {Kind: KindString},
				"result":      {Kind: KindString},
				"url":         {Kind: KindString},
			}},
		},
		SectionPositioning: {
			"differentiators": {Kind: KindStringList},
			"strong_opinions": {Kind: KindStringList},
			"topics_to_avoid": {Kind: KindStringList},
		},
		SectionVoice: {
			"tone":              {Kind: KindEnum, Enum: []string{"professionnel", "détendu", "punchy", "pédagogique", "inspirant", "mixte"}},
			"length":            {Kind: KindString},
			"emojis":            {Kind: KindBool},
			"preferred_formats": {Kind: KindEnumList, Enum: []string{"carousel", "article", "vidéo", "texte", "poll", "document"}},
			"cta_style":         {Kind: KindEnum, Enum: []string{"soft", "direct", "question", "aucun"}},
			"hashtags":          {Kind: KindStringList},
			"words_to_use":      {Kind: KindStringList},
			"words_to_avoid":    {Kind: KindStringList},
		},
		SectionContentStrategy: {
			"pillars":    {Kind: KindStringList},
			"do_more_of": {Kind: KindStringList},
			"do_less_of": {Kind: KindStringList},
		},
		SectionAssets: {
			"links": {Kind: KindObjectList, Item: map[string]Field{
				"label": {Kind: KindString},
				"url":   {Kind: KindString},
				"type":  {Kind: KindEnum, Enum: []string{"website", "blog", "portfolio", "other"}},
			}},
			"lead_magnet_url": {Kind: KindString},
			"booking_url":     {Kind: KindString},
		},
		SectionConstraints: {
			"legal_notes":      {Kind: KindString},
			"forbidden_claims": {Kind: KindStringList},
		},
		SectionSignals: {
			"keywords":            {Kind: KindStringList},
			"companies_to_follow": {Kind: KindStringList},
			"tickers":             {Kind: KindStringList},
		},
		SectionExamples: {
			"liked_posts":    {Kind: KindObjectList, Item: postRefItem},
			"disliked_posts": {Kind: KindObjectList, Item: postRefItem},
		},
		SectionCalendar: {
			"preferred_days":  {Kind: KindDayList},
			"preferred_hours": {Kind: KindHourList},
		},
	}
)

// IsSection reports whether name is one of the known sections.
func IsSection(name string) bool {
	_, ok := schema[name]
	return ok
}

// Lookup returns the schema entry for section.field.
func Lookup(section, field string) (Field, bool) {
	fields, ok := schema[section]
	if !ok {
		return Field{}, false
	}
	f, ok := fields[field]
	return f, ok
}
