package oracle

const defaultTemperature = 0.1

const identitySystem = `你负责从课程教学大纲的开头部分识别课程基本信息。

要求：
- course_name：课程中文名称，不含书名号
- course_code：课程代码，通常为一个大写字母加 7 位数字或字母（例如 A2301210）
- 找不到的字段填空字符串，不要编造

只输出 JSON 对象：
{"course_name": "", "course_code": ""}`

const goalsSystem = `你负责整理课程大纲中"课程目标"一节的文本。

整理规则：
- overview：标题之后、第一条具体目标之前的引导性文字
- goals：按原顺序列出每条课程目标，number 为目标序号，content 为目标全文
- 删除页码、多余空行和 PDF 转换产生的断行，合并被打断的句子
- 不要改写、增删目标内容

只输出 JSON 对象：
{"overview": "", "goals": [{"number": "1", "content": ""}]}`

const mappingRules = `字段说明：
- table_title：表格标题原文，例如"表1 计算机科学与技术专业课程目标与毕业要求对应关系"
- major：标题中的专业名称，去掉末尾"专业"二字，括号及括号内文字必须完整保留
  （"计算机科学英才班（计算机科学与技术）专业" → "计算机科学英才班（计算机科学与技术）"）
- mappings：表格的每一数据行
  - requirement_number：毕业要求编号，例如 "1"、"6"
  - requirement：毕业要求内容
  - indicator：指标点
  - course_goals：支撑的课程目标及权重，例如 "目标1：0.5 目标2：0.5"

文本清理：
- 删除 <br> 标签并拼接被打断的词语和编号（"1<br>-<br>1" → "1-1"，"自然科<br>学" → "自然科学"）
- 删除词语中间多余的空格，修正 "0 .5"、"0. 4" 这类数字
- 保留 "目标1：0.5 目标2：0.5" 之间的空格`

const tableSystem = `你负责解析一张"课程目标与毕业要求对应关系"表格。

` + mappingRules + `

只输出 JSON 对象：
{"table_title": "", "major": "", "mappings": [{"requirement_number": "", "requirement": "", "indicator": "", "course_goals": ""}]}`

const sectionSystem = `你负责解析课程大纲"课程目标与毕业要求对应关系"一节中的全部表格。
该节可能包含多个专业的表格，PDF 转换可能把标题拆成多行、嵌入表格首行或混入相邻表格。

` + mappingRules + `

一致性要求：
- 每张表单独输出一条记录，按出现顺序排列
- 每条记录的 major 必须与该表格行内容所对应的专业一致，不得把相邻表格的标题配给本表
- 本节没有表格时输出 []

只输出 JSON 数组：
[{"table_title": "", "major": "", "mappings": [{"requirement_number": "", "requirement": "", "indicator": "", "course_goals": ""}]}]`

const relationsSystem = `你负责整理课程大纲"与其他课程的联系"一节。

规则：
- prerequisite_courses：先修课程名称列表
- subsequent_courses：后续课程名称列表
- description：除课程名单外的说明性文字，没有则为空字符串
- 课程名称去掉书名号和多余空格，每个名称单独成项
- 写着"无"的列表输出 []

只输出 JSON 对象：
{"prerequisite_courses": [], "subsequent_courses": [], "description": ""}`

// IdentityRequest asks for the course name and code in a document prefix.
func IdentityRequest(prefix string) Request {
	return Request{Task: "identity", System: identitySystem, User: prefix, Temperature: defaultTemperature, JSON: true}
}

// GoalsRequest asks for the overview and numbered goals of the goals section.
func GoalsRequest(text string) Request {
	return Request{Task: "goals", System: goalsSystem, User: text, Temperature: defaultTemperature, JSON: true}
}

// TableRequest asks for one repaired mapping table to be structured.
func TableRequest(text string) Request {
	return Request{Task: "table", System: tableSystem, User: text, Temperature: defaultTemperature, JSON: true}
}

// SectionRequest asks for every table in a raw mapping section. The answer
// is an array, so JSON object mode stays off.
func SectionRequest(text string) Request {
	return Request{Task: "section", System: sectionSystem, User: text, Temperature: defaultTemperature}
}

// RelationsRequest asks for the prerequisite and subsequent courses.
func RelationsRequest(text string) Request {
	return Request{Task: "relations", System: relationsSystem, User: text, Temperature: defaultTemperature, JSON: true}
}
