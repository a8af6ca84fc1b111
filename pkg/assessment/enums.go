package assessment

// Sex is the patient's sex as encoded by the prediction model.
type Sex int

const (
	SexMale Sex = iota
	SexFemale
)

func (s Sex) String() string { return optionLabel(FieldSex, int(s)) }

// Flag is a yes/no answer encoded as 0 or 1.
type Flag int

const (
	No Flag = iota
	Yes
)

func (f Flag) String() string { return optionLabel(FieldFastingBloodSugar, int(f)) }

// ChestPain is the reported chest pain type.
type ChestPain int

const (
	ChestPainTypicalAngina ChestPain = iota
	ChestPainAtypicalAngina
	ChestPainNonAnginal
	ChestPainAsymptomatic
)

var chestPainOptions = []Option{
	{0, "Typical Angina"},
	{1, "Atypical Angina"},
	{2, "Non-Anginal Pain"},
	{3, "Asymptomatic"},
}

func (c ChestPain) String() string { return optionLabel(FieldChestPain, int(c)) }

// RestECG is the resting electrocardiogram result.
type RestECG int

const (
	RestECGNormal RestECG = iota
	RestECGSTTAbnormality
	RestECGLVHypertrophy
)

var restECGOptions = []Option{
	{0, "Normal"},
	{1, "ST-T Wave Abnormality"},
	{2, "Left Ventricular Hypertrophy"},
}

func (r RestECG) String() string { return optionLabel(FieldRestECG, int(r)) }

// STDepression is exercise induced ST depression relative to rest,
// reported as a severity tier rather than millimetres.
type STDepression int

const (
	STDepressionNone STDepression = iota
	STDepressionMild
	STDepressionModerate
	STDepressionSevere
	STDepressionVerySevere
	STDepressionCritical
)

var stDepressionOptions = []Option{
	{0, "No ST Depression"},
	{1, "Mild"},
	{2, "Moderate"},
	{3, "Severe"},
	{4, "Very Severe"},
	{5, "Critical"},
}

func (d STDepression) String() string { return optionLabel(FieldOldpeak, int(d)) }

// Slope is the slope of the peak exercise ST segment.
type Slope int

const (
	SlopeUpsloping Slope = iota
	SlopeFlat
	SlopeDownsloping
)

var slopeOptions = []Option{
	{0, "Upsloping"},
	{1, "Flat"},
	{2, "Downsloping"},
}

func (s Slope) String() string { return optionLabel(FieldSlope, int(s)) }

// MajorVessels is the number of major vessels coloured by fluoroscopy.
type MajorVessels int

var vesselOptions = []Option{{0, "0"}, {1, "1"}, {2, "2"}, {3, "3"}}

func (m MajorVessels) String() string { return optionLabel(FieldMajorVessels, int(m)) }

// Thal is the thalassemia test result.
type Thal int

const (
	ThalNormal Thal = iota
	ThalFixedDefect
	ThalReversibleDefect
	ThalUnknown
)

var thalOptions = []Option{
	{0, "Normal"},
	{1, "Fixed Defect"},
	{2, "Reversible Defect"},
	{3, "Unknown"},
}

func (t Thal) String() string { return optionLabel(FieldThal, int(t)) }

// Input is a complete assessment as sent to the prediction service.
// Field order and JSON keys match the service's expected body.
type Input struct {
	Age               float64      `json:"age" yaml:"age"`
	Sex               Sex          `json:"sex" yaml:"sex"`
	ChestPain         ChestPain    `json:"cp" yaml:"cp"`
	RestingBP         float64      `json:"trestbps" yaml:"trestbps"`
	Cholesterol       float64      `json:"chol" yaml:"chol"`
	FastingBloodSugar Flag         `json:"fbs" yaml:"fbs"`
	RestECG           RestECG      `json:"restecg" yaml:"restecg"`
	MaxHeartRate      float64      `json:"thalach" yaml:"thalach"`
	ExerciseAngina    Flag         `json:"exang" yaml:"exang"`
	Oldpeak           STDepression `json:"oldpeak" yaml:"oldpeak"`
	Slope             Slope        `json:"slope" yaml:"slope"`
	MajorVessels      MajorVessels `json:"ca" yaml:"ca"`
	Thal              Thal         `json:"thal" yaml:"thal"`
}

// Value returns the numeric value of field f.
func (in Input) Value(f Field) float64 {
	switch f {
	case FieldAge:
		return in.Age
	case FieldSex:
		return float64(in.Sex)
	case FieldChestPain:
		return float64(in.ChestPain)
	case FieldRestingBP:
		return in.RestingBP
	case FieldCholesterol:
		return in.Cholesterol
	case FieldFastingBloodSugar:
		return float64(in.FastingBloodSugar)
	case FieldRestECG:
		return float64(in.RestECG)
	case FieldMaxHeartRate:
		return in.MaxHeartRate
	case FieldExerciseAngina:
		return float64(in.ExerciseAngina)
	case FieldOldpeak:
		return float64(in.Oldpeak)
	case FieldSlope:
		return float64(in.Slope)
	case FieldMajorVessels:
		return float64(in.MajorVessels)
	case FieldThal:
		return float64(in.Thal)
	}
	return 0
}

// Validate checks every field of the input.
func (in Input) Validate() error {
	var errs ValidationErrors
	for _, f := range Fields() {
		if err := validate(f, in.Value(f)); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func inputFromValues(v [fieldCount]float64) Input {
	return Input{
		Age:               v[FieldAge],
		Sex:               Sex(v[FieldSex]),
		ChestPain:         ChestPain(v[FieldChestPain]),
		RestingBP:         v[FieldRestingBP],
		Cholesterol:       v[FieldCholesterol],
		FastingBloodSugar: Flag(v[FieldFastingBloodSugar]),
		RestECG:           RestECG(v[FieldRestECG]),
		MaxHeartRate:      v[FieldMaxHeartRate],
		ExerciseAngina:    Flag(v[FieldExerciseAngina]),
		Oldpeak:           STDepression(v[FieldOldpeak]),
		Slope:             Slope(v[FieldSlope]),
		MajorVessels:      MajorVessels(v[FieldMajorVessels]),
		Thal:              Thal(v[FieldThal]),
	}
}
