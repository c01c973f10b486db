package lax

// Elementwise unary primitives.
var (
	NegP             = NewPrimitive("neg")
	SignP            = NewPrimitive("sign")
	FloorP           = NewPrimitive("floor")
	CeilP            = NewPrimitive("ceil")
	RoundP           = NewPrimitive("round")
	IsFiniteP        = NewPrimitive("is_finite")
	ExpP             = NewPrimitive("exp")
	Expm1P           = NewPrimitive("expm1")
	LogP             = NewPrimitive("log")
	Log1pP           = NewPrimitive("log1p")
	TanhP            = NewPrimitive("tanh")
	LogisticP        = NewPrimitive("logistic")
	SinP             = NewPrimitive("sin")
	CosP             = NewPrimitive("cos")
	AtanP            = NewPrimitive("atan")
	AsinhP           = NewPrimitive("asinh")
	AcoshP           = NewPrimitive("acosh")
	AtanhP           = NewPrimitive("atanh")
	SqrtP            = NewPrimitive("sqrt")
	RsqrtP           = NewPrimitive("rsqrt")
	AbsP             = NewPrimitive("abs")
	LgammaP          = NewPrimitive("lgamma")
	DigammaP         = NewPrimitive("digamma")
	ErfP             = NewPrimitive("erf")
	ErfcP            = NewPrimitive("erfc")
	ErfInvP          = NewPrimitive("erf_inv")
	NotP             = NewPrimitive("not")
	PopulationCountP = NewPrimitive("population_count")
)

// Elementwise binary and ternary primitives.
var (
	AddP                  = NewPrimitive("add")
	SubP                  = NewPrimitive("sub")
	MulP                  = NewPrimitive("mul")
	DivP                  = NewPrimitive("div")
	RemP                  = NewPrimitive("rem")
	PowP                  = NewPrimitive("pow")
	MaxP                  = NewPrimitive("max")
	MinP                  = NewPrimitive("min")
	Atan2P                = NewPrimitive("atan2")
	NextafterP            = NewPrimitive("nextafter")
	EqP                   = NewPrimitive("eq")
	NeP                   = NewPrimitive("ne")
	LtP                   = NewPrimitive("lt")
	LeP                   = NewPrimitive("le")
	GtP                   = NewPrimitive("gt")
	GeP                   = NewPrimitive("ge")
	AndP                  = NewPrimitive("and")
	OrP                   = NewPrimitive("or")
	XorP                  = NewPrimitive("xor")
	ShiftLeftP            = NewPrimitive("shift_left")
	ShiftRightLogicalP    = NewPrimitive("shift_right_logical")
	ShiftRightArithmeticP = NewPrimitive("shift_right_arithmetic")
	IgammaP               = NewPrimitive("igamma")
	IgammacP              = NewPrimitive("igammac")
	BetaincP              = NewPrimitive("betainc")
	ClampP                = NewPrimitive("clamp")
	SelectNP              = NewPrimitive("select_n")
)

// Structural primitives.
var (
	ConvertElementTypeP = NewPrimitive("convert_element_type")
	BroadcastInDimP     = NewPrimitive("broadcast_in_dim")
	ReshapeP            = NewPrimitive("reshape")
	TransposeP          = NewPrimitive("transpose")
	ConcatenateP        = NewPrimitive("concatenate")
	PadP                = NewPrimitive("pad")
	SliceP              = NewPrimitive("slice")
	DynamicSliceP       = NewPrimitive("dynamic_slice")
	DynamicUpdateSliceP = NewPrimitive("dynamic_update_slice")
	GatherP             = NewPrimitive("gather")
	IotaP               = NewPrimitive("iota")
	StopGradientP       = NewPrimitive("stop_gradient")
	TieInP              = NewPrimitive("tie_in")
	ReducePrecisionP    = NewPrimitive("reduce_precision")
)

// Reductions, scans, linear algebra and sorting.
var (
	ReduceSumP  = NewPrimitive("reduce_sum")
	ReduceMaxP  = NewPrimitive("reduce_max")
	ReduceMinP  = NewPrimitive("reduce_min")
	ReduceProdP = NewPrimitive("reduce_prod")
	ReduceAndP  = NewPrimitive("reduce_and")
	ReduceOrP   = NewPrimitive("reduce_or")
	ArgmaxP     = NewPrimitive("argmax")
	CumsumP     = NewPrimitive("cumsum")
	CumprodP    = NewPrimitive("cumprod")
	CummaxP     = NewPrimitive("cummax")
	DotGeneralP = NewPrimitive("dot_general")
	SvdP        = NewPrimitive("svd")
	QrP         = NewPrimitive("qr")
	SortP       = NewPrimitive("sort")
	TopKP       = NewPrimitive("top_k")
)

// Windowed reductions, scatters and PRNG primitives.
var (
	ReduceWindowSumP    = NewPrimitive("reduce_window_sum")
	ReduceWindowMaxP    = NewPrimitive("reduce_window_max")
	ReduceWindowMinP    = NewPrimitive("reduce_window_min")
	ReduceWindowP       = NewPrimitive("reduce_window")
	SelectAndGatherAddP = NewPrimitive("select_and_gather_add")
	ScatterAddP         = NewPrimitive("scatter-add")
	ScatterMulP         = NewPrimitive("scatter-mul")
	ScatterMinP         = NewPrimitive("scatter-min")
	ScatterMaxP         = NewPrimitive("scatter-max")
	RandomSplitP        = NewPrimitive("random_split")
)

// Primitives carrying sub-computations, and collectives.
var (
	XlaCallP   = NewPrimitive("xla_call")
	RematCallP = NewPrimitive("remat_call")
	PsumP      = NewPrimitive("psum")
	AxisIndexP = NewPrimitive("axis_index")
)
