// Package convert performs traditional-to-simplified script conversion of
// committed text.
//
// The table covers common single-character mappings; characters without an
// entry pass through unchanged. Conversion is applied only at the
// presentation boundary — candidates and buffer state always hold the
// provider's unconverted text.
package convert

import "strings"

var tradToSimp = map[rune]rune{
	'愛': '爱', '罷': '罢', '備': '备', '筆': '笔', '邊': '边',
	'標': '标', '錶': '表', '別': '别', '賓': '宾', '倉': '仓',
	'長': '长', '車': '车', '稱': '称', '衝': '冲', '處': '处',
	'傳': '传', '詞': '词', '從': '从', '達': '达', '帶': '带',
	'單': '单', '當': '当', '黨': '党', '燈': '灯', '點': '点',
	'電': '电', '東': '东', '動': '动', '對': '对', '隊': '队',
	'爾': '尔', '發': '发', '飛': '飞', '豐': '丰', '風': '风',
	'崗': '岗', '個': '个', '給': '给', '貢': '贡', '構': '构',
	'關': '关', '觀': '观', '廣': '广', '國': '国', '過': '过',
	'漢': '汉', '號': '号', '後': '后', '華': '华', '話': '话',
	'歡': '欢', '還': '还', '會': '会', '機': '机', '幾': '几',
	'計': '计', '記': '记', '際': '际', '見': '见', '間': '间',
	'講': '讲', '較': '较', '經': '经', '舊': '旧', '開': '开',
	'來': '来', '樂': '乐', '類': '类', '裡': '里', '禮': '礼',
	'歷': '历', '連': '连', '臉': '脸', '兩': '两', '輛': '辆',
	'靈': '灵', '領': '领', '龍': '龙', '樓': '楼', '馬': '马',
	'買': '买', '賣': '卖', '門': '门', '們': '们', '夢': '梦',
	'麵': '面', '鳥': '鸟', '農': '农', '氣': '气', '錢': '钱',
	'強': '强', '親': '亲', '請': '请', '權': '权', '讓': '让',
	'熱': '热', '認': '认', '師': '师', '時': '时', '實': '实',
	'識': '识', '書': '书', '術': '术', '雙': '双', '誰': '谁',
	'說': '说', '絲': '丝', '飼': '饲', '態': '态', '談': '谈',
	'體': '体', '聽': '听', '頭': '头', '圖': '图', '團': '团',
	'萬': '万', '網': '网', '為': '为', '衛': '卫', '問': '问',
	'無': '无', '務': '务', '習': '习', '戲': '戏', '現': '现',
	'鄉': '乡', '響': '响', '寫': '写', '謝': '谢', '興': '兴',
	'學': '学', '訊': '讯', '壓': '压', '嚴': '严', '業': '业',
	'葉': '叶', '義': '义', '藝': '艺', '憶': '忆', '議': '议',
	'陰': '阴', '銀': '银', '應': '应', '營': '营', '語': '语',
	'員': '员', '園': '园', '遠': '远', '雲': '云', '運': '运',
	'這': '这', '戰': '战', '張': '张', '隻': '只', '質': '质',
	'鐘': '钟', '種': '种', '眾': '众', '專': '专', '轉': '转',
	'裝': '装', '準': '准', '總': '总', '縱': '纵', '組': '组',
}

// Simplify converts traditional characters in s to their simplified forms.
// Characters without a table entry are returned unchanged.
func Simplify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if simp, ok := tradToSimp[r]; ok {
			b.WriteRune(simp)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
